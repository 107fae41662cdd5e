package extract

import (
	"regexp"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardHTML = `<div class="card" internshipid="4411" data-href="/internship/detail/4411">
  <div class="profile"><h3><a href="/internship/detail/4411">  Frontend
     Intern </a></h3></div>
  <p class="heading_6"></p>
  <p class="company_name">Acme Labs</p>
  <span class="location_link">Bengaluru</span>
  <span class="stipend">₹ 10,000 /month</span>
  <div class="round_tabs">React</div>
  <div class="round_tabs">CSS</div>
  <div class="round_tabs">React</div>
  <p class="footer">Apply by 30 Nov' 26 · 120 applicants</p>
</div>`

func scope(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc.Find("body").Children().First()
}

func TestChain_First(t *testing.T) {
	card := scope(t, cardHTML)

	tests := []struct {
		name   string
		chain  Chain
		want   string
		wantOK bool
	}{
		{
			name:   "first strategy wins",
			chain:  Chain{Text(".profile h3 a"), Text("h3")},
			want:   "Frontend Intern",
			wantOK: true,
		},
		{
			name:   "blank match falls through",
			chain:  Chain{Text(".heading_6"), Text(".company_name")},
			want:   "Acme Labs",
			wantOK: true,
		},
		{
			name:   "missing selector falls through to attribute",
			chain:  Chain{Attr("", "data-internship-id"), Attr("", "internshipid")},
			want:   "4411",
			wantOK: true,
		},
		{
			name:   "pattern as last resort",
			chain:  Chain{Text(".applicants"), Pattern(regexp.MustCompile(`(\d+) applicants`))},
			want:   "120",
			wantOK: true,
		},
		{
			name:   "nothing matches",
			chain:  Chain{Text(".nope"), Attr("a", "data-nope")},
			wantOK: false,
		},
		{
			name: "panicking strategy is skipped",
			chain: Chain{
				func(*goquery.Selection) (string, error) { panic("boom") },
				Text(".location_link"),
			},
			want:   "Bengaluru",
			wantOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.chain.First(card)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestChain_Or(t *testing.T) {
	card := scope(t, cardHTML)
	assert.Equal(t, "Not specified", Chain{Text(".duration")}.Or(card, "Not specified"))
	assert.Equal(t, "₹ 10,000 /month", Chain{Text(".stipend")}.Or(card, "Not mentioned"))
}

func TestTexts(t *testing.T) {
	card := scope(t, cardHTML)

	got, ok := ListChain{Texts(".skill_tag", 5), Texts(".round_tabs", 5)}.First(card)
	require.True(t, ok)
	assert.Equal(t, []string{"React", "CSS"}, got)

	got, ok = ListChain{Texts(".round_tabs", 1)}.First(card)
	require.True(t, ok)
	assert.Equal(t, []string{"React"}, got)

	_, ok = ListChain{Texts(".missing", 5)}.First(card)
	assert.False(t, ok)
}

func TestContainers(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(
		`<ul><li class="job" data-job-id="1"></li><li class="job" data-job-id="2"></li></ul>`))
	require.NoError(t, err)

	sel, found, ok := Containers(doc.Selection, []string{".individual_internship", "[data-job-id]", ".job"})
	require.True(t, ok)
	assert.Equal(t, "[data-job-id]", sel)
	assert.Equal(t, 2, found.Length())

	_, _, ok = Containers(doc.Selection, []string{".missing"})
	assert.False(t, ok)
}

func TestClean(t *testing.T) {
	assert.Equal(t, "a b c", Clean("  a\n\t b   c "))
	assert.Equal(t, "", Clean(" \n "))
}
