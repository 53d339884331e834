package formatter

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/younsl/gazua/internal/models"
)

// PrintJSON writes the listing as indented JSON keyed by provider and group
func PrintJSON(w io.Writer, listing map[string]models.InstanceGroupMap) error {
	bytes, err := json.MarshalIndent(listing, "", "  ")
	if err != nil {
		return fmt.Errorf("error formatting JSON: %w", err)
	}
	if _, err := fmt.Fprintln(w, string(bytes)); err != nil {
		return fmt.Errorf("error writing JSON: %w", err)
	}
	return nil
}
