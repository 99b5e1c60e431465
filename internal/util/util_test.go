package util

import (
	"testing"
)

func TestApplyAffiliateTag(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		tag      string
		expected string
		changed  bool
	}{
		{
			name:     "No change for other hosts",
			input:    "https://www.flipkart.com/product",
			tag:      "deals-21",
			expected: "https://www.flipkart.com/product",
			changed:  false,
		},
		{
			name:     "Amazon replace tag",
			input:    "https://www.amazon.in/dp/12345?tag=old-tag",
			tag:      "deals-21",
			expected: "https://www.amazon.in/dp/12345?tag=deals-21",
			changed:  true,
		},
		{
			name:     "Amazon add tag",
			input:    "https://www.amazon.in/dp/12345",
			tag:      "deals-21",
			expected: "https://www.amazon.in/dp/12345?tag=deals-21",
			changed:  true,
		},
		{
			name:     "Amazon tag already set",
			input:    "https://www.amazon.in/dp/12345?tag=deals-21",
			tag:      "deals-21",
			expected: "https://www.amazon.in/dp/12345?tag=deals-21",
			changed:  false,
		},
		{
			name:     "Empty tag",
			input:    "https://www.amazon.in/dp/12345",
			tag:      "",
			expected: "https://www.amazon.in/dp/12345",
			changed:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := ApplyAffiliateTag(tt.input, tt.tag)
			if got != tt.expected {
				t.Errorf("ApplyAffiliateTag() got = %v, want %v", got, tt.expected)
			}
			if changed != tt.changed {
				t.Errorf("ApplyAffiliateTag() changed = %v, want %v", changed, tt.changed)
			}
		})
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "Trailing slash",
			input: "https://www.flipkart.com/my-deal/p/itm1/",
			want:  "https://www.flipkart.com/my-deal/p/itm1",
		},
		{
			name:  "Remove UTM params",
			input: "https://shop.example.com/deal?utm_source=foo&utm_medium=bar",
			want:  "https://shop.example.com/deal",
		},
		{
			name:  "Keep meaningful params",
			input: "https://shop.example.com/deal?pid=42&utm_campaign=x",
			want:  "https://shop.example.com/deal?pid=42",
		},
		{
			name:  "Lowercase host and drop fragment",
			input: "https://Shop.Example.com/deal#reviews",
			want:  "https://shop.example.com/deal",
		},
		{
			name:    "Relative URL rejected",
			input:   "/deal/123",
			wantErr: true,
		},
		{
			name:    "Non-http scheme rejected",
			input:   "javascript:alert(1)",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("NormalizeURL() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("NormalizeURL() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetDomain(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Standard domain",
			input: "https://amazon.in/dp/12345",
			want:  "amazon.in",
		},
		{
			name:  "Subdomain",
			input: "https://affiliate-api.flipkart.net/dotd",
			want:  "flipkart.net",
		},
		{
			name:  "Two-part TLD",
			input: "https://sub.example.co.uk/product",
			want:  "example.co.uk",
		},
		{
			name:  "Localhost",
			input: "http://127.0.0.1:8080/deals",
			want:  "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetDomain(tt.input)
			if got != tt.want {
				t.Errorf("GetDomain() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input  string
		want   float64
		wantOK bool
	}{
		{"1299", 1299, true},
		{"₹1,299.00", 1299, true},
		{"$ 19.99", 19.99, true},
		{"  42.5 ", 42.5, true},
		{"", 0, false},
		{"N/A", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseAmount(tt.input)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("ParseAmount(%q) = %v, %v; want %v, %v", tt.input, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" Electronics, Fashion,,Kitchen & Appliances ,")
	want := []string{"Electronics", "Fashion", "Kitchen & Appliances"}
	if len(got) != len(want) {
		t.Fatalf("SplitList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("SplitList()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
