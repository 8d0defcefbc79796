package paging

import (
	"net/http/httptest"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		want    Page
		wantErr bool
	}{
		{"defaults", "/members", Page{Skip: 0, Limit: DefaultLimit}, false},
		{"explicit", "/members?skip=20&limit=10", Page{Skip: 20, Limit: 10}, false},
		{"max limit", "/members?limit=1000", Page{Skip: 0, Limit: MaxLimit}, false},
		{"negative skip", "/members?skip=-1", Page{}, true},
		{"zero limit", "/members?limit=0", Page{}, true},
		{"limit too large", "/members?limit=1001", Page{}, true},
		{"non numeric", "/members?skip=abc", Page{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(httptest.NewRequest("GET", tt.target, nil))
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFindOptions(t *testing.T) {
	opts := Page{Skip: 5, Limit: 7}.FindOptions()
	if opts.Skip == nil || *opts.Skip != 5 {
		t.Errorf("Skip = %v, want 5", opts.Skip)
	}
	if opts.Limit == nil || *opts.Limit != 7 {
		t.Errorf("Limit = %v, want 7", opts.Limit)
	}
	if opts.Sort == nil {
		t.Error("expected a sort on _id")
	}
}
