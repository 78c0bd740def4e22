package answers

import (
	"math"
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name  string
		label string
		want  []string
	}{
		{
			name:  "strips stop words and punctuation",
			label: "How many years of experience do you have?",
			want:  []string{"many", "years", "experience"},
		},
		{
			name:  "drops single characters",
			label: "Rate your C & Go skills (1-5)",
			want:  []string{"rate", "go", "skills"},
		},
		{
			name:  "portuguese stop words",
			label: "Qual é a sua pretensão salarial?",
			want:  []string{"pretensão", "salarial"},
		},
		{
			name:  "deduplicates tokens",
			label: "experience experience years",
			want:  []string{"experience", "years"},
		},
		{
			name:  "empty label",
			label: "",
			want:  []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tokenize(tt.label)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokenize(%q) = %v, want %v", tt.label, got, tt.want)
			}
		})
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"identical", []string{"years", "experience"}, []string{"years", "experience"}, 1.0},
		{"disjoint", []string{"salary"}, []string{"visa"}, 0.0},
		{"partial overlap", []string{"years", "experience", "golang"}, []string{"years", "experience", "python"}, 0.5},
		{"both empty", nil, nil, 0.0},
		{"one empty", []string{"years"}, nil, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Jaccard(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Jaccard(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestMatchOption(t *testing.T) {
	options := []string{"Yes", "No", "Prefer not to say"}

	tests := []struct {
		name      string
		answer    string
		threshold float64
		want      string
		wantOK    bool
	}{
		{"exact match", "Yes", 0.3, "Yes", true},
		{"case insensitive", "no", 0.3, "No", true},
		{"verbose answer snaps to prefix option", "no, not applicable", 0.3, "No", true},
		{"typo snaps by edit distance", "Yess", 0.3, "Yes", true},
		{"nonsense misses", "purple elephant", 0.9, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := MatchOption(tt.answer, options, tt.threshold)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("MatchOption(%q) = (%q, %v), want (%q, %v)", tt.answer, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestMatchOptionNoOptions(t *testing.T) {
	if _, ok := MatchOption("anything", nil, 0.3); ok {
		t.Error("expected no match with empty options")
	}
}

func TestEditSimilarity(t *testing.T) {
	if got := editSimilarity("yes", "yes"); got != 1 {
		t.Errorf("identical strings should score 1, got %f", got)
	}
	if got := editSimilarity("", ""); got != 0 {
		t.Errorf("empty strings should score 0, got %f", got)
	}
	got := editSimilarity("kitten", "sitting")
	want := 1 - 3.0/7.0
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("editSimilarity(kitten, sitting) = %f, want %f", got, want)
	}
}
