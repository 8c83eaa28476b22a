package messagefile_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/message-inserter/message-inserter/internal/messagefile"
	"github.com/message-inserter/message-inserter/internal/store"
)

const sample = `
messages:
  - title: Newsletter popup
    region: popup
    type: image
    status: published
    conditionals: [is_front_page]
    session:
      operator: ">="
      threshold: 3
    dismiss:
      days: 7
      hours: 12
    show_once: true
    screen_sizes:
      - max_width: 767
        image_url: /img/small.png
        image_alt: Join us
      - min_width: 768
        image_url: /img/large.png
        button:
          text: Subscribe
          url: /subscribe
  - title: Sale banner
    region: sitewide_banner
    type: banner
    colors:
      background: "#cc0000"
      text: white
    screen_sizes:
      - content: Everything 20% off
`

func TestRead(t *testing.T) {
	msgs, err := messagefile.Read(strings.NewReader(sample))
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	popup := msgs[0]
	assert.Equal(t, store.RegionPopup, popup.Region)
	assert.Equal(t, store.TypeImage, popup.Type)
	assert.Equal(t, store.StatusPublished, popup.Status)
	assert.Equal(t, 7, popup.DismissDays)
	assert.Equal(t, 12, popup.DismissHours)
	assert.True(t, popup.ShowOnce)
	require.NotNil(t, popup.Session)
	assert.Equal(t, ">=", popup.Session.Operator)
	require.Len(t, popup.ScreenSizes, 2)
	assert.Equal(t, 767, *popup.ScreenSizes[0].MaxWidth)
	assert.Equal(t, "/subscribe", popup.ScreenSizes[1].Button.URL)

	banner := msgs[1]
	assert.Equal(t, store.StatusDraft, banner.Status, "status defaults to draft")
	assert.Equal(t, "#cc0000", banner.BannerColors.Background)
}

func TestRead_Empty(t *testing.T) {
	msgs, err := messagefile.Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestRead_UnknownField(t *testing.T) {
	_, err := messagefile.Read(strings.NewReader("messages:\n  - title: x\n    colour: red\n"))
	assert.Error(t, err)
}

func TestRead_InvalidEntryNamesIt(t *testing.T) {
	doc := "messages:\n  - title: Broken\n    region: popup\n    type: video\n    screen_sizes:\n      - content: hi\n"

	_, err := messagefile.Read(strings.NewReader(doc))
	require.Error(t, err)
	assert.True(t, errors.Is(err, store.ErrInvalid))
	assert.Contains(t, err.Error(), `message 1 ("Broken")`)
}

func TestWriteThenRead(t *testing.T) {
	msgs, err := messagefile.Read(strings.NewReader(sample))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, messagefile.Write(&buf, msgs))

	again, err := messagefile.Read(&buf)
	require.NoError(t, err)

	if diff := cmp.Diff(msgs, again); diff != "" {
		t.Errorf("messages changed after write/read (-want +got):\n%s", diff)
	}
}
