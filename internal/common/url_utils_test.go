package common

import (
	"testing"
)

func TestExtractJobKey(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.indeed.com/viewjob?jk=abc123def456", "abc123def456"},
		{"https://www.indeed.com/rc/clk?jk=deadbeef00&from=serp", "deadbeef00"},
		{"https://br.indeed.com/viewjob?vjk=cafe0123", "cafe0123"},
		{"https://www.indeed.com/jobs?q=golang", ""},
		{"://not a url", ""},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			if got := ExtractJobKey(tt.url); got != tt.want {
				t.Errorf("ExtractJobKey(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestDomainForLocale(t *testing.T) {
	tests := []struct {
		locale string
		want   string
	}{
		{"us", "www.indeed.com"},
		{"en", "www.indeed.com"},
		{"", "www.indeed.com"},
		{"uk", "uk.indeed.com"},
		{"br", "br.indeed.com"},
		{"FR", "fr.indeed.com"},
		{"  de  ", "de.indeed.com"},
	}

	for _, tt := range tests {
		if got := DomainForLocale(tt.locale); got != tt.want {
			t.Errorf("DomainForLocale(%q) = %q, want %q", tt.locale, got, tt.want)
		}
	}
}

func TestBuildSearchURL(t *testing.T) {
	got := BuildSearchURL("golang developer", "us", 0)
	want := "https://www.indeed.com/jobs?q=golang+developer"
	if got != want {
		t.Errorf("BuildSearchURL offset 0 = %q, want %q", got, want)
	}

	got = BuildSearchURL("golang", "br", 20)
	want = "https://br.indeed.com/jobs?q=golang&start=20"
	if got != want {
		t.Errorf("BuildSearchURL offset 20 = %q, want %q", got, want)
	}
}

func TestIsOnSiteURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://www.indeed.com/viewjob?jk=x", true},
		{"https://smartapply.indeed.com/beta/form", true},
		{"https://indeed.com/", true},
		{"https://careers.example.com/apply", false},
		{"https://evil-indeed.com/viewjob", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsOnSiteURL(tt.url); got != tt.want {
			t.Errorf("IsOnSiteURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, perPage, want int
	}{
		{100, 10, 10},
		{101, 10, 11},
		{9, 10, 1},
		{0, 10, 0},
		{50, 0, 0},
	}

	for _, tt := range tests {
		if got := TotalPages(tt.total, tt.perPage); got != tt.want {
			t.Errorf("TotalPages(%d, %d) = %d, want %d", tt.total, tt.perPage, got, tt.want)
		}
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Senior Go Developer", "senior_go_developer"},
		{"Dev (Full-Stack) — Remote!", "dev_full_stack_remote"},
		{"  spaced   out  ", "spaced_out"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := SanitizeTitle(tt.title); got != tt.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.title, got, tt.want)
		}
	}
}
