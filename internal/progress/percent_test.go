package progress_test

import (
	"testing"

	"github.com/KaretiGnaneswar/gnanify-learn/internal/catalog"
	"github.com/KaretiGnaneswar/gnanify-learn/internal/progress"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		completed, total, want int
	}{
		{0, 0, 0},
		{5, 0, 0},
		{1, -1, 0},
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 2, 50},
		{1, 8, 13},
		{3, 3, 100},
		{7, 3, 100},
	}
	for _, tt := range tests {
		if got := progress.Percent(tt.completed, tt.total); got != tt.want {
			t.Errorf("Percent(%d, %d) = %d, want %d", tt.completed, tt.total, got, tt.want)
		}
	}
}

func testCatalog() *catalog.Catalog {
	return catalog.New([]catalog.Category{{
		Slug:  "dsa",
		Title: "Data Structures & Algorithms",
		Topics: []catalog.Topic{
			{Slug: "arrays", Title: "Arrays", Sections: []catalog.Section{
				{ID: "intro", Title: "Intro"},
				{ID: "operations", Title: "Operations"},
				{ID: "complexity", Title: "Complexity"},
			}},
			{Slug: "graphs", Title: "Graphs"},
		},
	}})
}

func TestAggregator_IgnoresStaleIds(t *testing.T) {
	rec := progress.Record{}
	p := rec.Category("dsa")
	p.SetTopic("arrays", true)
	p.SetTopic("removed-topic", true)
	p.SetSection("arrays", "intro", true, 0)
	p.SetSection("arrays", "removed-section", true, 0)

	agg := progress.NewAggregator(testCatalog(), rec)

	if got := agg.CategoryPercent("dsa"); got != 50 {
		t.Errorf("CategoryPercent = %d, want 50", got)
	}
	if got := agg.TopicPercent("dsa", "arrays"); got != 33 {
		t.Errorf("TopicPercent = %d, want 33", got)
	}
	if got := agg.CategoryPercent("unknown"); got != 0 {
		t.Errorf("CategoryPercent(unknown) = %d, want 0", got)
	}
}

func TestAggregator_CategorySummary(t *testing.T) {
	rec := progress.Record{}
	rec.Category("dsa").SetSection("arrays", "intro", true, 3)
	rec.Category("dsa").SetTopic("graphs", true)

	agg := progress.NewAggregator(testCatalog(), rec)

	sum, ok := agg.CategorySummary("dsa")
	if !ok {
		t.Fatal("CategorySummary(dsa) not found")
	}
	if sum.Completed != 1 || sum.Total != 2 || sum.Percent != 50 {
		t.Errorf("summary = %+v", sum)
	}
	if len(sum.Topics) != 2 || sum.Topics[0].Slug != "arrays" {
		t.Fatalf("topics = %+v", sum.Topics)
	}
	arrays := sum.Topics[0]
	if arrays.Completed || arrays.SectionsCompleted != 1 || arrays.SectionsTotal != 3 || arrays.Percent != 33 {
		t.Errorf("arrays = %+v", arrays)
	}
	if graphs := sum.Topics[1]; !graphs.Completed || graphs.Percent != 0 {
		t.Errorf("graphs = %+v (no sections → 0%%)", graphs)
	}

	if _, ok := agg.CategorySummary("unknown"); ok {
		t.Error("CategorySummary(unknown) should be false")
	}
}
