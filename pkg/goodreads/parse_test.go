package goodreads

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePayload = `<?xml version="1.0" encoding="UTF-8"?>
<GoodreadsResponse>
  <reviews start="1" end="2" total="27">
    <review>
      <book>
        <id type="integer">44767458</id>
        <title>Dune Messiah</title>
        <isbn>9780593098233</isbn>
        <num_pages>256</num_pages>
        <publication_year>1969</publication_year>
        <image_url>https://images.gr-assets.com/books/dune-messiah.jpg</image_url>
        <description>The second book of Dune.</description>
        <authors>
          <author>
            <name>Frank Herbert</name>
          </author>
          <author>
            <name>Someone Else</name>
          </author>
        </authors>
      </book>
      <rating>5</rating>
      <shelves>
        <shelf name="read" exclusive="true"/>
      </shelves>
      <date_added>Tue Nov 14 09:08:56 -0800 2023</date_added>
      <date_read>Sat Dec 02 00:00:00 -0800 2023</date_read>
      <started_at></started_at>
      <read_count>1</read_count>
      <owned>1</owned>
      <body>Loved it.</body>
    </review>
    <review>
      <book>
        <id>185</id>
        <title>Broken Record</title>
        <isbn nil="true"/>
        <num_pages nil="true"/>
        <publication_year>not-a-year</publication_year>
        <image_url></image_url>
        <description nil="true"/>
        <authors>
          <author>
            <name>Jane Doe</name>
          </author>
        </authors>
      </book>
      <rating>0</rating>
      <shelves>
        <shelf name="to-read" exclusive="true"/>
      </shelves>
      <date_added>garbage</date_added>
      <date_read></date_read>
      <started_at></started_at>
      <read_count></read_count>
      <owned>0</owned>
      <body>   </body>
    </review>
  </reviews>
</GoodreadsResponse>`

func TestParseShelfPage(t *testing.T) {
	t.Parallel()

	page, err := parseShelfPage([]byte(samplePayload))
	require.NoError(t, err)

	assert.Equal(t, 1, page.Start)
	assert.Equal(t, 2, page.End)
	assert.Equal(t, 27, page.Total)
	assert.True(t, page.HasMore())
	require.Len(t, page.Records, 2)

	first := page.Records[0]
	assert.True(t, first.Valid())
	assert.Equal(t, "44767458", first.GoodreadsID)
	assert.Equal(t, "Dune Messiah", first.Title)
	assert.Equal(t, "Frank Herbert", first.Author, "only the primary author is kept")
	require.NotNil(t, first.ISBN)
	assert.Equal(t, "9780593098233", *first.ISBN)
	require.NotNil(t, first.Pages)
	assert.Equal(t, 256, *first.Pages)
	require.NotNil(t, first.PublicationYear)
	assert.Equal(t, 1969, *first.PublicationYear)
	assert.Equal(t, "read", first.Shelf)
	require.NotNil(t, first.Rating)
	assert.Equal(t, 5, *first.Rating)
	require.NotNil(t, first.Review)
	assert.Equal(t, "Loved it.", *first.Review)
	require.NotNil(t, first.DateAdded)
	assert.Equal(t, time.November, first.DateAdded.Month())
	require.NotNil(t, first.DateRead)
	assert.Nil(t, first.DateStarted)
	assert.Equal(t, 1, first.ReadCount)
	assert.True(t, first.Owned)
}

func TestParseShelfPage_Coercions(t *testing.T) {
	t.Parallel()

	page, err := parseShelfPage([]byte(samplePayload))
	require.NoError(t, err)
	require.Len(t, page.Records, 2)

	rec := page.Records[1]
	assert.True(t, rec.Valid())
	assert.Nil(t, rec.ISBN, "nil-attributed elements become absent")
	assert.Nil(t, rec.Pages)
	assert.Nil(t, rec.PublicationYear, "failed numeric parses become absent, not zero")
	assert.Nil(t, rec.ImageURL, "empty strings become absent")
	assert.Nil(t, rec.Description)
	assert.Nil(t, rec.Review, "whitespace-only review text becomes absent")
	assert.Nil(t, rec.DateAdded, "unparseable dates become absent")
	require.NotNil(t, rec.Rating)
	assert.Equal(t, 0, *rec.Rating, "a zero rating survives the adapter; the query layer drops it")
	assert.Equal(t, 1, rec.ReadCount, "read count defaults to 1")
	assert.False(t, rec.Owned)
	assert.Equal(t, "to-read", rec.Shelf)
}

func TestParseShelfPage_SingleReview(t *testing.T) {
	t.Parallel()

	payload := `<GoodreadsResponse><reviews start="1" end="1" total="1"><review>
		<book><id>99</id><title>Solo</title><authors><author><name>A. Writer</name></author></authors></book>
		<rating>3</rating>
		<shelves><shelf name="read"/></shelves>
	</review></reviews></GoodreadsResponse>`

	page, err := parseShelfPage([]byte(payload))
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.False(t, page.HasMore())
	assert.Equal(t, "Solo", page.Records[0].Title)
}

func TestParseShelfPage_EmptyShelf(t *testing.T) {
	t.Parallel()

	payload := `<GoodreadsResponse><reviews start="0" end="0" total="0"></reviews></GoodreadsResponse>`

	page, err := parseShelfPage([]byte(payload))
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.False(t, page.HasMore())
}

func TestParseShelfPage_MalformedXML(t *testing.T) {
	t.Parallel()

	_, err := parseShelfPage([]byte(`<GoodreadsResponse><reviews start=`))
	require.Error(t, err)
}

func TestRecordValid(t *testing.T) {
	t.Parallel()

	rec := Record{GoodreadsID: "1", Title: "T", Author: "A"}
	assert.True(t, rec.Valid())

	for _, mutate := range []func(*Record){
		func(r *Record) { r.GoodreadsID = "" },
		func(r *Record) { r.Title = "" },
		func(r *Record) { r.Author = "" },
	} {
		broken := rec
		mutate(&broken)
		assert.False(t, broken.Valid())
	}
}
