package record

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/Shimizu-Technology/placement-finder-api/internal/models"
)

// columns is the export header. Downstream ad tools key on these names, so
// order and spelling must not change.
var columns = []string{
	"Search Year",
	"Search Category Name",
	"Rank",
	"Title",
	"Channel",
	"Channel Subscribers",
	"Channel Total Videos",
	"Channel Total Views",
	"Channel Country",
	"Views",
	"Likes",
	"Comments",
	"Avg Views per Day",
	"Published Date",
	"Like-to-View Ratio (%)",
	"Comment-to-View Ratio (%)",
	"Engagement Rate (%)",
	"Duration (Seconds)",
	"Duration",
	"Spoken Language",
	"Text Language",
	"Video Category",
	"Tags",
	"Made for Kids",
	"Thumbnail",
	"URL",
}

// Header returns a copy of the export column names.
func Header() []string {
	return slices.Clone(columns)
}

// Row renders a record in Header order.
func Row(r models.VideoRecord) []string {
	channelNumber := func(n int64) string {
		if !r.ChannelKnown {
			return NotAvailable
		}
		return strconv.FormatInt(n, 10)
	}
	madeForKids := NotAvailable
	if r.ChannelKnown {
		madeForKids = "No"
		if r.MadeForKids {
			madeForKids = "Yes"
		}
	}

	return []string{
		r.SearchYear,
		r.SearchCategory,
		strconv.Itoa(r.Rank),
		r.Title,
		r.ChannelTitle,
		r.ChannelSubscribers.Display(),
		channelNumber(r.ChannelVideoCount),
		channelNumber(r.ChannelTotalViews),
		r.ChannelCountry,
		strconv.FormatInt(r.ViewCount, 10),
		strconv.FormatInt(r.LikeCount, 10),
		strconv.FormatInt(r.CommentCount, 10),
		fmt.Sprintf("%.2f", r.AvgViewsPerDay),
		r.PublishedDate,
		fmt.Sprintf("%.2f%%", r.LikeToViewRatio),
		fmt.Sprintf("%.2f%%", r.CommentToViewRatio),
		fmt.Sprintf("%.2f%%", r.EngagementRate),
		strconv.Itoa(r.DurationSeconds),
		r.Duration,
		r.SpokenLanguage,
		r.TextLanguage,
		r.CategoryName,
		strings.Join(r.Tags, "|"),
		madeForKids,
		r.ThumbnailURL,
		r.URL,
	}
}

// WriteCSV writes a header row followed by one row per record.
func WriteCSV(w io.Writer, records []models.VideoRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, r := range records {
		if err := cw.Write(Row(r)); err != nil {
			return fmt.Errorf("failed to write csv row %d: %w", r.Rank, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ShareOfVoice groups records by channel and returns each channel's share
// of the set's total views, largest first. Ties keep first-seen order.
func ShareOfVoice(records []models.VideoRecord) []models.ChannelShare {
	index := make(map[string]int)
	var shares []models.ChannelShare
	var total int64

	for _, r := range records {
		i, ok := index[r.ChannelID]
		if !ok {
			i = len(shares)
			index[r.ChannelID] = i
			shares = append(shares, models.ChannelShare{ChannelID: r.ChannelID, ChannelTitle: r.ChannelTitle})
		}
		shares[i].Videos++
		shares[i].Views += r.ViewCount
		total += r.ViewCount
	}

	for i := range shares {
		if total > 0 {
			shares[i].Share = float64(shares[i].Views) / float64(total) * 100
		}
	}
	slices.SortStableFunc(shares, func(a, b models.ChannelShare) int {
		switch {
		case a.Views > b.Views:
			return -1
		case a.Views < b.Views:
			return 1
		}
		return 0
	})
	if shares == nil {
		shares = []models.ChannelShare{}
	}
	return shares
}
