// bulk_test.go: unit tests for id extraction, upload parsing and analysis.
//
// Go Pattern: Table-driven tests. Each case is a row; t.Run gives each row
// its own name in the output so a failure points straight at the input.
package bulk

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shimizu-Technology/placement-finder-api/internal/cache"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/enrich"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi/ytapitest"
)

func TestExtractID(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		wantID string
		wantOK bool
	}{
		{name: "watch URL", input: "https://www.youtube.com/watch?v=dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "watch URL with playlist", input: "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=x", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "youtu.be short URL", input: "https://youtu.be/dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "youtu.be with timestamp", input: "https://youtu.be/dQw4w9WgXcQ?t=42", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "embed URL", input: "https://www.youtube.com/embed/dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "shorts URL", input: "https://www.youtube.com/shorts/dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "plain id", input: "dQw4w9WgXcQ", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "id with dashes and underscores", input: "a-B_c1D2e3F", wantID: "a-B_c1D2e3F", wantOK: true},
		{name: "surrounding whitespace", input: "  dQw4w9WgXcQ \t", wantID: "dQw4w9WgXcQ", wantOK: true},
		{name: "not a url", input: "not a url", wantOK: false},
		{name: "empty", input: "", wantOK: false},
		{name: "too short", input: "abc", wantOK: false},
		{name: "too long", input: "dQw4w9WgXcQQ", wantOK: false},
		{name: "channel URL", input: "https://www.youtube.com/channel/UC38IQsAvIsxxjztdMZQtwHA", wantOK: false},
		{name: "unrelated URL", input: "https://www.google.com", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ExtractID(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestExtractIDs(t *testing.T) {
	ids, unparsed := ExtractIDs([]string{
		"https://youtu.be/dQw4w9WgXcQ",
		"garbage",
		"",
		"dQw4w9WgXcQ",
		"a-B_c1D2e3F",
	})

	assert.Equal(t, []string{"dQw4w9WgXcQ", "a-B_c1D2e3F"}, ids)
	assert.Equal(t, 1, unparsed)
}

func TestReadColumn(t *testing.T) {
	upload := "\ufeffName,Video URL\nfirst,https://youtu.be/dQw4w9WgXcQ\nsecond,\nthird,a-B_c1D2e3F\nshort-row\n"

	t.Run("named column", func(t *testing.T) {
		cells, err := ReadColumn(strings.NewReader(upload), "video url")
		require.NoError(t, err)
		assert.Equal(t, []string{"https://youtu.be/dQw4w9WgXcQ", "a-B_c1D2e3F"}, cells)
	})

	t.Run("first column by default", func(t *testing.T) {
		cells, err := ReadColumn(strings.NewReader(upload), "")
		require.NoError(t, err)
		assert.Equal(t, []string{"first", "second", "third", "short-row"}, cells)
	})

	t.Run("missing column", func(t *testing.T) {
		_, err := ReadColumn(strings.NewReader(upload), "Link")
		assert.ErrorIs(t, err, ErrColumnNotFound)
	})

	t.Run("empty upload", func(t *testing.T) {
		_, err := ReadColumn(strings.NewReader(""), "")
		assert.ErrorIs(t, err, ErrNoIdentifiers)
	})
}

func TestLooksLikeMusic(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{title: "Artist - Song (Official Music Video)", want: true},
		{title: "Song [Lyric Video]", want: true},
		{title: "Song ft. Someone", want: true},
		{title: "Song (Club Remix)", want: true},
		{title: "OFFICIAL AUDIO", want: true},
		{title: "How to cook pasta", want: false},
		{title: "Left turn tips", want: false},
		{title: "Song (feat. Someone)", want: true},
		{title: "Feat. Guest - Song", want: true},
		{title: "New laptop from Microsoft.", want: false},
		{title: "Which way? We went left.", want: false},
		{title: "Best gift. Ever", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, LooksLikeMusic(tt.title))
		})
	}
}

func newAnalyzer() *Analyzer {
	a := NewAnalyzer(enrich.New(cache.New(cache.Options{}), time.Hour))
	a.SetClock(func() time.Time { return time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC) })
	return a
}

func TestAnalyze(t *testing.T) {
	api := ytapitest.New()
	var ids []string
	for i := range 120 {
		id := ytapitest.VideoID(i)
		ids = append(ids, id)
		if i == 7 {
			continue // not returned by the API
		}
		title := "Vlog"
		if i == 3 {
			title = "Artist - Song (Official Video)"
		}
		api.AddVideos(ytapitest.Video(id, "UC1", title, "24", 100))
	}
	api.AddChannels(ytapitest.Channel("UC1", "One", 10))

	res, err := newAnalyzer().Analyze(context.Background(), api, "US", ids, map[string]string{"24": "Entertainment"})

	require.NoError(t, err)
	assert.Equal(t, 3, res.DetailCalls, "50 + 50 + 20")
	assert.Equal(t, 1, res.ChannelCalls)
	assert.Equal(t, 4, res.QuotaCost)
	assert.Equal(t, []string{ytapitest.VideoID(7)}, res.Missing)
	require.Len(t, res.Records, 119)

	assert.Equal(t, ids[0], res.Records[0].VideoID, "input order is kept")
	assert.Equal(t, 1, res.Records[0].Rank)
	assert.Equal(t, "Entertainment", res.Records[0].CategoryName)
	assert.Equal(t, "Music", res.Records[3].CategoryName)
	assert.Equal(t, "10", res.Records[3].CategoryID)
	assert.True(t, res.Records[0].ChannelKnown)
}

func TestAnalyzeSkipsFailedBatch(t *testing.T) {
	api := ytapitest.New()
	var ids []string
	for i := range 60 {
		id := ytapitest.VideoID(i)
		ids = append(ids, id)
		api.AddVideos(ytapitest.Video(id, "UC1", "v", "24", 100))
	}
	api.VideoErrs[1] = errors.New("backendError")

	res, err := newAnalyzer().Analyze(context.Background(), api, "US", ids, nil)

	require.NoError(t, err)
	assert.Len(t, res.Records, 10)
	assert.Len(t, res.Missing, 50)
	assert.Len(t, res.Warnings, 1)
}

func TestAnalyzeAllBatchesFail(t *testing.T) {
	api := ytapitest.New()
	api.VideoErrs[1] = errors.New("quotaExceeded")

	res, err := newAnalyzer().Analyze(context.Background(), api, "US", []string{"dQw4w9WgXcQ"}, nil)

	require.Error(t, err)
	assert.Empty(t, res.Records)
	assert.Equal(t, 1, res.QuotaCost)
	assert.Empty(t, api.ChannelCalls, "no channel lookup without videos")
}

func TestAnalyzeNoIDs(t *testing.T) {
	api := ytapitest.New()

	_, err := newAnalyzer().Analyze(context.Background(), api, "US", nil, nil)

	assert.ErrorIs(t, err, ErrNoIdentifiers)
	assert.Empty(t, api.VideoCalls)
}
