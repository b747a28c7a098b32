package search_test

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/catalog"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/search"
)

func dsaCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Category{
		{
			Slug:  "dsa",
			Title: "Data Structures & Algorithms",
			Topics: []catalog.Topic{
				{
					Slug: "arrays", Title: "Arrays", Summary: "Contiguous storage.",
					Difficulty: catalog.Beginner, ReadTime: "8 min",
					Sections: []catalog.Section{
						{ID: "intro", Title: "Intro", Content: "What an array is."},
						{ID: "operations", Title: "Operations", Content: "Insert, delete."},
					},
				},
				{Slug: "graphs", Title: "Graphs", Summary: "Nodes and edges."},
			},
		},
		{Slug: "empty", Title: "Empty Category"},
	})
}

func TestSearch_TopicScenario(t *testing.T) {
	idx := search.NewIndex(dsaCatalog(), search.Options{})

	results := idx.Search("array")

	var topic *search.Entry
	for i := range results {
		if results[i].To == "/tutorials/dsa/arrays" {
			topic = &results[i]
		}
	}
	if topic == nil {
		t.Fatalf("Search(array) = %+v, want /tutorials/dsa/arrays", results)
	}
	if topic.Title != "Arrays — Data Structures & Algorithms" {
		t.Errorf("Title = %q", topic.Title)
	}
	if !strings.HasPrefix(topic.Meta, "Beginner • 8 min") {
		t.Errorf("Meta = %q, want difficulty • read time", topic.Meta)
	}
}

func TestSearch_EntryShapes(t *testing.T) {
	idx := search.NewIndex(dsaCatalog(), search.Options{})

	tests := []struct {
		name  string
		query string
		want  search.Entry
	}{
		{
			name:  "category links to first topic",
			query: "structures",
			want:  search.Entry{Title: "Data Structures & Algorithms", To: "/tutorials/dsa/arrays", Meta: "Category"},
		},
		{
			name:  "empty category links to intro",
			query: "empty category",
			want:  search.Entry{Title: "Empty Category", To: "/tutorials/empty/intro", Meta: "Category"},
		},
		{
			name:  "topic without difficulty or read time",
			query: "edges",
			want:  search.Entry{Title: "Graphs — Data Structures & Algorithms", To: "/tutorials/dsa/graphs", Meta: "Topic"},
		},
		{
			name:  "section by content",
			query: "insert",
			want:  search.Entry{Title: "Operations — Arrays", To: "/tutorials/dsa/arrays/operations", Meta: "Section • Data Structures & Algorithms"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := idx.Search(tt.query)
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("Search(%q) = %+v, want [%+v]", tt.query, got, tt.want)
			}
		})
	}
}

func TestSearch_TraversalOrderAndCase(t *testing.T) {
	idx := search.NewIndex(dsaCatalog(), search.Options{})

	got := idx.Search("  ARRAY ")
	want := []string{"/tutorials/dsa/arrays", "/tutorials/dsa/arrays/intro"}
	if len(got) != len(want) {
		t.Fatalf("Search() = %+v, want %d results", got, len(want))
	}
	for i := range want {
		if got[i].To != want[i] {
			t.Errorf("result[%d].To = %q, want %q", i, got[i].To, want[i])
		}
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	idx := search.NewIndex(dsaCatalog(), search.Options{})

	for _, q := range []string{"", "   ", "\t\n"} {
		if got := idx.Search(q); len(got) != 0 {
			t.Errorf("Search(%q) = %+v, want empty", q, got)
		}
	}
}

func TestSearch_NoMatch(t *testing.T) {
	idx := search.NewIndex(dsaCatalog(), search.Options{})
	if got := idx.Search("kubernetes"); got == nil || len(got) != 0 {
		t.Errorf("Search(kubernetes) = %#v, want empty non-nil", got)
	}
}

func TestSearch_DeduplicatesByPath(t *testing.T) {
	// A category whose first topic slug is "intro" links to the same path as
	// a topic entry; both match "intro".
	c := catalog.New([]catalog.Category{{
		Slug:  "os",
		Title: "Intro to OS",
		Topics: []catalog.Topic{
			{Slug: "intro", Title: "Intro", Sections: []catalog.Section{{ID: "intro", Title: "Intro"}}},
		},
	}})
	idx := search.NewIndex(c, search.Options{})

	got := idx.Search("intro")
	seen := map[string]int{}
	for _, e := range got {
		seen[e.To]++
	}
	for to, n := range seen {
		if n > 1 {
			t.Errorf("path %s appears %d times", to, n)
		}
	}
	if len(got) != 2 {
		t.Fatalf("Search(intro) = %+v, want 2 unique entries", got)
	}
	if got[0].Meta != "Category" {
		t.Errorf("first occurrence should win, got %+v", got[0])
	}
}

func TestSearch_CapAndDeterminism(t *testing.T) {
	topics := make([]catalog.Topic, 0, 40)
	for i := 0; i < 40; i++ {
		topics = append(topics, catalog.Topic{
			Slug:     fmt.Sprintf("topic-%02d", i),
			Title:    fmt.Sprintf("Topic %02d", i),
			Sections: []catalog.Section{{ID: "s", Title: "Topic section"}},
		})
	}
	c := catalog.New([]catalog.Category{{Slug: "big", Title: "Big", Topics: topics}})

	idx := search.NewIndex(c, search.Options{})
	first := idx.Search("topic")
	if len(first) != search.DefaultMaxResults {
		t.Fatalf("len(results) = %d, want %d", len(first), search.DefaultMaxResults)
	}
	if first[0].To != "/tutorials/big/topic-00" || first[1].To != "/tutorials/big/topic-00/s" {
		t.Errorf("results should start at the front of traversal order: %+v", first[:2])
	}
	if !reflect.DeepEqual(first, idx.Search("topic")) {
		t.Error("repeated searches should return identical results")
	}

	small := search.NewIndex(c, search.Options{MaxResults: 5})
	if got := len(small.Search("topic")); got != 5 {
		t.Errorf("MaxResults=5 returned %d", got)
	}
}

func TestSearch_Builtin(t *testing.T) {
	idx := search.NewIndex(catalog.Builtin(), search.Options{})

	got := idx.Search("big o notation")
	if len(got) != 1 || got[0].To != "/tutorials/dsa/introduction-to-dsa/big-o-notation" {
		t.Errorf("Search(big o notation) = %+v", got)
	}
}

func TestSearch_Concurrent(t *testing.T) {
	idx := search.NewIndex(catalog.Builtin(), search.Options{})
	want := idx.Search("memory")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if got := idx.Search("Memory"); !reflect.DeepEqual(got, want) {
				t.Error("concurrent search returned different results")
			}
		}()
	}
	wg.Wait()
}
