package util

import (
	"encoding/json"
	"fmt"
	"io"
)

// PrintPrettyJSON writes v to w as indented JSON followed by a newline.
func PrintPrettyJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
