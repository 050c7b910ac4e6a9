package filename

import (
	"reflect"
	"testing"

	"github.com/pkgfoundry/wheelscan/pkg/errors"
)

func strptr(s string) *string { return &s }

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		want Parsed
	}{
		{
			"pip-18.0-py2.py3-none-any.whl",
			Parsed{
				Project:  "pip",
				Version:  "18.0",
				Python:   []string{"py2", "py3"},
				ABI:      []string{"none"},
				Platform: []string{"any"},
			},
		},
		{
			"bencoder.pyx-1.1.2-pp226-pp226-win32.whl",
			Parsed{
				Project:  "bencoder.pyx",
				Version:  "1.1.2",
				Python:   []string{"pp226"},
				ABI:      []string{"pp226"},
				Platform: []string{"win32"},
			},
		},
		{
			"efilter-1!1.2-py2-none-any.whl",
			Parsed{
				Project:  "efilter",
				Version:  "1!1.2",
				Python:   []string{"py2"},
				ABI:      []string{"none"},
				Platform: []string{"any"},
			},
		},
		{
			"coremltools-0.3.0-py2.7-none-any.whl",
			Parsed{
				Project:  "coremltools",
				Version:  "0.3.0",
				Python:   []string{"py2", "7"},
				ABI:      []string{"none"},
				Platform: []string{"any"},
			},
		},
		{
			"mayan_edms-1.1.0-1502100955-py2-none-any.whl",
			Parsed{
				Project:  "mayan_edms",
				Version:  "1.1.0",
				Build:    strptr("1502100955"),
				Python:   []string{"py2"},
				ABI:      []string{"none"},
				Platform: []string{"any"},
			},
		},
		{
			"polarTransform-2-1.0.0-py3-none-any.whl",
			Parsed{
				Project:  "polarTransform",
				Version:  "2",
				Build:    strptr("1.0.0"),
				Python:   []string{"py3"},
				ABI:      []string{"none"},
				Platform: []string{"any"},
			},
		},
		{
			// A numeric first tag is a python tag, not a build number,
			// when taking it as a build leaves too few tag fields.
			"SimpleSteem-1.1.9-3.0-none-any.whl",
			Parsed{
				Project:  "SimpleSteem",
				Version:  "1.1.9",
				Python:   []string{"3", "0"},
				ABI:      []string{"none"},
				Platform: []string{"any"},
			},
		},
		{
			"cvxopt-1.2.0-001-cp34-cp34m-macosx_10_6_intel.macosx_10_9_intel.whl",
			Parsed{
				Project:  "cvxopt",
				Version:  "1.2.0",
				Build:    strptr("001"),
				Python:   []string{"cp34"},
				ABI:      []string{"cp34m"},
				Platform: []string{"macosx_10_6_intel", "macosx_10_9_intel"},
			},
		},
		{
			"PyQt3D-5.7.1-5.7.1-cp34.cp35.cp36-abi3-macosx_10_6_intel.whl",
			Parsed{
				Project:  "PyQt3D",
				Version:  "5.7.1",
				Build:    strptr("5.7.1"),
				Python:   []string{"cp34", "cp35", "cp36"},
				ABI:      []string{"abi3"},
				Platform: []string{"macosx_10_6_intel"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.name)
			if err != nil {
				t.Fatalf("Parse returned error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.name, got, tt.want)
			}
			if got.String() != tt.name {
				t.Errorf("String() = %q, want %q", got.String(), tt.name)
			}
		})
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []string{
		"arq-0.3-py35+-none-any.whl",
		"azure_iothub_service_client-1.1.0.0-py2-win32.whl",
		"bgframework-0.4-py2,py3,pypy-none-any.whl",
		"buoyant-0.5.2--py2.py3-none-any.whl",
		"devtools-0.1-py35,py36-none-any.whl",
		"nupic-0.0.31-py2-none-macosx-10.9-intel.whl",
		"qcodes_-0.1.0-py3-none-any.whl",
		"pip-18.0-py2.py3-none-any.tar.gz",
		"",
	}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Parse(name); !errors.Is(err, errors.ErrCodeInvalidFilename) {
				t.Errorf("Parse(%q) error = %v, want INVALID_FILENAME", name, err)
			}
		})
	}
}

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Django", "django"},
		{"foo_bar", "foo-bar"},
		{"foo.bar", "foo-bar"},
		{"foo-_.bar", "foo-bar"},
		{"typing_extensions", "typing-extensions"},
		{"simple", "simple"},
	}
	for _, tt := range tests {
		if got := CanonicalName(tt.in); got != tt.want {
			t.Errorf("CanonicalName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.0", "1.0"},
		{"1.0_1", "1.0-1"},
		{"1.0RC1", "1.0rc1"},
		{"2!1.0", "2!1.0"},
	}
	for _, tt := range tests {
		if got := CanonicalVersion(tt.in); got != tt.want {
			t.Errorf("CanonicalVersion(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
