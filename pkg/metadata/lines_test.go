package metadata

import (
	"reflect"
	"strings"
	"testing"
)

func TestReadLines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"plain", "demo\ndemo.sub\n", []string{"demo", "demo.sub"}},
		{"blank lines and comments", "\ndemo\n\n# note\n  demo2  \n", []string{"demo", "demo2"}},
		{"empty", "", []string{}},
		{"only comments", "# a\n# b\n", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ReadLines(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ReadLines returned error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ReadLines() = %v, want %v", got, tt.want)
			}
		})
	}
}
