package services

import (
	"reflect"
	"testing"

	"github.com/charabracket/charabracket/models"
)

func TestCountWords(t *testing.T) {
	cases := []struct {
		name  string
		texts []string
		want  map[string]int
	}{
		{
			name:  "lowercases and splits on punctuation",
			texts: []string{"Sword-wielding KNIGHT, knight errant."},
			want:  map[string]int{"sword": 1, "wielding": 1, "knight": 2, "errant": 1},
		},
		{
			name:  "drops words shorter than three runes",
			texts: []string{"an ox at it go up"},
			want:  map[string]int{},
		},
		{
			name:  "drops stopwords",
			texts: []string{"the dragon and the tower"},
			want:  map[string]int{"dragon": 1, "tower": 1},
		},
		{
			name:  "keeps digits inside words",
			texts: []string{"unit 42 mk2 model mk2"},
			want:  map[string]int{"unit": 1, "mk2": 2, "model": 1},
		},
		{
			name:  "counts across texts",
			texts: []string{"grim dark", "dark future"},
			want:  map[string]int{"grim": 1, "dark": 2, "future": 1},
		},
		{
			name:  "cyrillic descriptions",
			texts: []string{"рыцарь в сияющих доспехах"},
			want:  map[string]int{"рыцарь": 1, "сияющих": 1, "доспехах": 1},
		},
		{
			name:  "no texts",
			texts: nil,
			want:  map[string]int{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := countWords(tc.texts)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("countWords(%q) = %v, want %v", tc.texts, got, tc.want)
			}
		})
	}
}

func TestTopWordsOrderAndLimit(t *testing.T) {
	counts := map[string]int{"omega": 3, "alpha": 3, "beta": 1, "gamma": 2}

	want := []models.WordFrequency{
		{Word: "alpha", Count: 3},
		{Word: "omega", Count: 3},
		{Word: "gamma", Count: 2},
		{Word: "beta", Count: 1},
	}

	got := topWords(counts, 0)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("topWords(counts, 0) = %v, want %v", got, want)
	}

	got = topWords(counts, 2)
	if !reflect.DeepEqual(got, want[:2]) {
		t.Fatalf("topWords(counts, 2) = %v, want %v", got, want[:2])
	}

	got = topWords(counts, 10)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("topWords(counts, 10) = %v, want %v", got, want)
	}
}

func TestTopWordsEmpty(t *testing.T) {
	if got := topWords(map[string]int{}, 10); len(got) != 0 {
		t.Fatalf("expected no frequencies, got %v", got)
	}
}
