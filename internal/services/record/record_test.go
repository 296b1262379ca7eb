// record_test.go covers flattening defaults, derived metrics and the CSV contract.
package record

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/youtube/v3"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/enrich"
	"github.com/Shimizu-Technology/placement-finder-api/internal/services/ytapi/ytapitest"
)

var now = time.Date(2024, 1, 11, 12, 0, 0, 0, time.UTC)

func TestFlattenDerivedMetrics(t *testing.T) {
	v := ytapitest.Video("dQw4w9WgXcQ", "UC1", "Rome in 4K", "19", 1000)
	v.Snippet.Tags = []string{"rome", "travel"}
	v.Snippet.DefaultAudioLanguage = "en"
	channels := map[string]models.ChannelProfile{
		"UC1": {
			ChannelID:   "UC1",
			Title:       "Travel Co",
			Subscribers: models.SubscriberCount{Count: 5000, Status: models.SubscribersVisible},
			VideoCount:  42,
			TotalViews:  90000,
			Country:     "IT",
			MadeForKids: false,
		},
	}

	r := Flatten(v, Context{Rank: 3, Year: "2024", CategoryName: "Travel & Events"}, channels, map[string]string{"19": "Travel & Events"}, now)

	assert.Equal(t, 3, r.Rank)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", r.URL)
	assert.Equal(t, "2024-01-01", r.PublishedDate)
	assert.InDelta(t, 100.0, r.AvgViewsPerDay, 1e-9, "1000 views over 10 days")
	assert.InDelta(t, 10.0, r.LikeToViewRatio, 1e-9)
	assert.InDelta(t, 1.0, r.CommentToViewRatio, 1e-9)
	assert.InDelta(t, 11.0, r.EngagementRate, 1e-9)
	assert.Equal(t, 253, r.DurationSeconds)
	assert.Equal(t, "4:13", r.Duration)
	assert.Equal(t, "Travel & Events", r.CategoryName)
	assert.Equal(t, "en", r.SpokenLanguage)
	assert.Equal(t, "N/A", r.TextLanguage)
	assert.True(t, r.ChannelKnown)
	assert.Equal(t, "IT", r.ChannelCountry)
	assert.Equal(t, int64(5000), r.ChannelSubscribers.Value())
}

func TestFlattenZeroViews(t *testing.T) {
	v := ytapitest.Video("dQw4w9WgXcQ", "UC1", "new", "19", 0)
	v.Statistics.LikeCount = 5

	r := Flatten(v, Context{}, nil, nil, now)

	assert.Equal(t, 0.0, r.LikeToViewRatio)
	assert.Equal(t, 0.0, r.CommentToViewRatio)
	assert.Equal(t, 0.0, r.EngagementRate)
}

func TestAvgViewsPerDay(t *testing.T) {
	tests := []struct {
		name      string
		published time.Time
		want      float64
	}{
		{name: "published today", published: now.Add(-3 * time.Hour), want: 500},
		{name: "published in the future", published: now.Add(time.Hour), want: 500},
		{name: "unknown publish time", published: time.Time{}, want: 500},
		{name: "partial days are floored", published: now.Add(-(2*24 + 23) * time.Hour), want: 250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, AvgViewsPerDay(500, tt.published, now), 1e-9)
		})
	}
}

func TestFlattenIsTotal(t *testing.T) {
	r := Flatten(&youtube.Video{}, Context{}, nil, nil, now)

	assert.Equal(t, "N/A", r.Title)
	assert.Equal(t, "N/A", r.URL)
	assert.Equal(t, "N/A", r.PublishedDate)
	assert.Equal(t, "N/A", r.SearchYear)
	assert.Equal(t, "N/A", r.CategoryName)
	assert.Equal(t, "0:00", r.Duration)
	assert.Equal(t, []string{}, r.Tags)
	assert.Equal(t, enrich.PlaceholderThumbnail, r.ThumbnailURL)
	assert.False(t, r.ChannelKnown)
	assert.Equal(t, "N/A", r.ChannelSubscribers.Display())
}

func TestFlattenUnknownCategoryAndChannel(t *testing.T) {
	v := ytapitest.Video("dQw4w9WgXcQ", "UCgone", "t", "99", 10)

	r := Flatten(v, Context{}, map[string]models.ChannelProfile{}, map[string]string{}, now)

	assert.Equal(t, "ID:99", r.CategoryName)
	assert.Equal(t, "Channel UCgone", r.ChannelTitle, "the video snippet still names the channel")
	assert.False(t, r.ChannelKnown)

	row := Row(r)
	col := func(name string) string {
		for i, c := range Header() {
			if c == name {
				return row[i]
			}
		}
		t.Fatalf("no column %q", name)
		return ""
	}
	assert.Equal(t, "N/A", col("Channel Subscribers"))
	assert.Equal(t, "N/A", col("Channel Total Videos"))
	assert.Equal(t, "N/A", col("Channel Country"))
	assert.Equal(t, "N/A", col("Made for Kids"))
}

func TestHeaderContract(t *testing.T) {
	h := Header()
	require.Len(t, h, 26)
	assert.Equal(t, "Search Year", h[0])
	assert.Equal(t, "Views", h[9])
	assert.Equal(t, "Avg Views per Day", h[12])
	assert.Equal(t, "Like-to-View Ratio (%)", h[14])
	assert.Equal(t, "URL", h[25])

	h[0] = "mutated"
	assert.Equal(t, "Search Year", Header()[0], "Header returns a copy")
}

func TestWriteCSV(t *testing.T) {
	v := ytapitest.Video("dQw4w9WgXcQ", "UC1", `Rome, "the" city`, "19", 1000)
	v.Snippet.Tags = []string{"a", "b"}
	hidden := map[string]models.ChannelProfile{
		"UC1": {ChannelID: "UC1", Subscribers: models.SubscriberCount{Status: models.SubscribersHidden}, Country: "IT", MadeForKids: true},
	}
	r := Flatten(v, Context{Rank: 1, Year: "2024", CategoryName: "All Categories"}, hidden, nil, now)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []models.VideoRecord{r}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, Header(), rows[0])

	row := rows[1]
	assert.Equal(t, "2024", row[0])
	assert.Equal(t, "All Categories", row[1])
	assert.Equal(t, `Rome, "the" city`, row[3])
	assert.Equal(t, "Hidden", row[5])
	assert.Equal(t, "100.00", row[12])
	assert.Equal(t, "10.00%", row[14])
	assert.Equal(t, "1.00%", row[15])
	assert.Equal(t, "11.00%", row[16])
	assert.Equal(t, "a|b", row[22])
	assert.Equal(t, "Yes", row[23])
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", row[25])
}

func TestShareOfVoice(t *testing.T) {
	records := []models.VideoRecord{
		{ChannelID: "A", ChannelTitle: "Alpha", ViewCount: 100},
		{ChannelID: "B", ChannelTitle: "Beta", ViewCount: 600},
		{ChannelID: "A", ChannelTitle: "Alpha", ViewCount: 300},
	}

	shares := ShareOfVoice(records)

	require.Len(t, shares, 2)
	assert.Equal(t, "B", shares[0].ChannelID)
	assert.InDelta(t, 60.0, shares[0].Share, 1e-9)
	assert.Equal(t, "A", shares[1].ChannelID)
	assert.Equal(t, 2, shares[1].Videos)
	assert.Equal(t, int64(400), shares[1].Views)
	assert.InDelta(t, 40.0, shares[1].Share, 1e-9)

	assert.Empty(t, ShareOfVoice(nil))
}
