package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/competition-radar/internal/types"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Info Lomba Feed</title>
	<link>%s</link>
	<item>
		<title>Lomba Desain Poster</title>
		<link>%s/lomba/desain-poster</link>
		<description><![CDATA[<p>Lomba desain untuk <b>mahasiswa</b></p><img src="/uploads/desain.jpg">]]></description>
	</item>
	<item>
		<title>Lomba Debat</title>
		<link>%s/lomba/debat</link>
		<enclosure url="https://cdn.example.com/debat.png" type="image/png" length="100"/>
		<description>Debat bahasa Inggris SMA</description>
	</item>
	<item>
		<title>Pengumuman tanpa gambar</title>
		<link>%s/pengumuman</link>
		<description>Tidak ada poster</description>
	</item>
</channel>
</rss>`

func TestFeedAdapter_Fetch(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprintf(w, rssFeed, server.URL, server.URL, server.URL, server.URL)
	}))
	defer server.Close()

	a, err := NewFeedAdapter(Spec{ID: "feed", ListingURL: server.URL + "/feed"}, Deps{Logger: quietLogger()})
	require.NoError(t, err)

	res, err := a.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Items, 2, "items without an image are skipped")

	first := res.Items[0]
	assert.Equal(t, "Lomba Desain Poster", first.Title)
	assert.Equal(t, server.URL+"/lomba/desain-poster", first.SourceURL)
	assert.Equal(t, server.URL+"/uploads/desain.jpg", first.MediaURL)
	assert.Equal(t, "Lomba desain untuk mahasiswa", first.BodyText)
	assert.Equal(t, types.OriginFeed, first.Origin)

	assert.Equal(t, "https://cdn.example.com/debat.png", res.Items[1].MediaURL)
	assert.Equal(t, "Debat bahasa Inggris SMA", res.Items[1].BodyText)
}

func TestFeedAdapter_InvalidFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "this is not a feed")
	}))
	defer server.Close()

	a, err := NewFeedAdapter(Spec{ID: "feed", ListingURL: server.URL}, Deps{Logger: quietLogger()})
	require.NoError(t, err)

	_, err = a.Fetch(context.Background())
	var srcErr *SourceFetchError
	assert.ErrorAs(t, err, &srcErr)
}
