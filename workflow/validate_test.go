package workflow_test

import (
	"strings"
	"testing"
)

func TestValidateAcceptsSample(t *testing.T) {
	doc := mustParse(t, sampleWorkflow)
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateConnectorRules(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			"variable reused across bindings",
			`
$1:
  Input:
    NASAInput:
      url: http://host/%{date}
      path: /archive/%{date}
  Filter:
    date:
      DateTimeFilter:
        start: "01/01/2020"
        end: "01/31/2020"
`,
			"cannot be reused",
		},
		{
			"variable not bound by any filter",
			`
$1:
  Input:
    NASAInput:
      url: http://host/%{date}
`,
			"not bound by any filter",
		},
		{
			"filter for unknown variable",
			`
$1:
  Input:
    NASAInput:
      url: http://host/archive
  Filter:
    date:
      DateTimeFilter:
        start: "01/01/2020"
        end: "01/31/2020"
`,
			"only variables can be bound by a filter",
		},
		{
			"variable bound by two filters",
			`
$1:
  Input:
    NASAInput:
      url: http://host/%{date}
  Filter:
    date:
      DateTimeFilter:
        start: "01/01/2020"
        end: "01/31/2020"
    date:
      OtherFilter:
        pattern: daily
`,
			"bound once by a filter",
		},
		{
			"variable collides with argument name",
			`
$1:
  Input:
    NASAInput:
      url: http://host/%{start}
  Filter:
    start:
      DateTimeFilter:
        start: "01/01/2020"
        end: "01/31/2020"
`,
			"cannot also be a bound plugin argument",
		},
		{
			"null argument without prompt rule",
			`
$1:
  Input:
    NASAInput:
      url: http://host/archive
      user:
`,
			"must have a binding if included",
		},
		{
			"null password outside Input",
			`
$1:
  Input:
    NASAInput:
      url: http://host/%{date}
  Filter:
    date:
      DateTimeFilter:
        password:
`,
			"must have a binding if included",
		},
		{
			"variables in Output plugin",
			`
$1:
  Input:
    NASAInput:
      url: http://host/%{date}
  Filter:
    date:
      DateTimeFilter:
        start: "01/01/2020"
        end: "01/31/2020"
  Output:
    S3Output:
      bucket: results/%{date}
`,
			"variables are not allowed in Output plugins",
		},
		{
			"two stage references in one binding",
			`
$1:
  Input:
    PathInput:
      path: /data
$2:
  Input:
    MergeInput:
      left: $1
      both: $1,$1
`,
			"more than one stage",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.doc)
			err := doc.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}

func TestValidateAllowsSensitiveNulls(t *testing.T) {
	doc := mustParse(t, `
$1:
  Input:
    NASAInput:
      url: http://host/archive
      password:
      token_sensitive:
$2:
  HDFEOSShapefileMask:
    hdffile: $1
    apikey_sensitive:
`)
	if err := doc.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidateProcessorRules(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			"variables not allowed",
			`
$1:
  HDFEOSShapefileMask:
    hdffile: /data/%{file}.hdf
`,
			"variables are not allowed in processor arguments",
		},
		{
			"null argument",
			`
$1:
  HDFEOSShapefileMask:
    hdffile:
`,
			"must have a binding if included",
		},
		{
			"malformed dir wrapping",
			`
$1:
  Input:
    PathInput:
      path: /data
$2:
  HDFEOSShapefileMask:
    hdffile: dir($1
`,
			"dir() modifiers",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := mustParse(t, tt.doc)
			err := doc.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.want)
			}
		})
	}
}
