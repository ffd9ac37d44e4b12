package pages

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devicelab-dev/unified-runner/pkg/core"
	"github.com/devicelab-dev/unified-runner/pkg/driver/mock"
	"github.com/devicelab-dev/unified-runner/pkg/retry"
)

var (
	field  = core.Locator{Using: core.ByID, Value: "app:id/field"}
	button = core.Locator{Using: core.ByID, Value: "app:id/button"}
	hidden = core.Locator{Using: core.ByID, Value: "app:id/hidden"}
	absent = core.Locator{Using: core.ByID, Value: "app:id/absent"}
)

func newTestBase(t *testing.T, elements map[string]*mock.Element) (*Base, *mock.Session) {
	t.Helper()
	m := mock.New(mock.Config{Elements: elements})
	return &Base{
		Driver:         m,
		Platform:       "android",
		ExplicitWait:   200 * time.Millisecond,
		ScreenshotsDir: t.TempDir(),
		PollInterval:   5 * time.Millisecond,
		Retry:          retry.Policy{Retries: 1, Delay: time.Millisecond},

		PresenceTimeout: 20 * time.Millisecond,
	}, m
}

func TestNewBaseFromEnv(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	t.Setenv("EXPLICIT_WAIT", "7")
	t.Setenv("SCREENSHOTS_DIR", dir)
	t.Setenv("PLATFORM", "IOS")

	b, err := NewBase(mock.New(mock.Config{}))
	require.NoError(t, err)
	assert.Equal(t, 7*time.Second, b.ExplicitWait)
	assert.Equal(t, "ios", b.Platform)
	assert.DirExists(t, dir)
	assert.Equal(t, DefaultPresenceTimeout, b.PresenceTimeout)
	assert.Equal(t, retry.DefaultPolicy.Retries, b.Retry.Retries)
}

func TestNewBaseRejectsBadWait(t *testing.T) {
	t.Setenv("EXPLICIT_WAIT", "soon")
	t.Setenv("SCREENSHOTS_DIR", t.TempDir())
	_, err := NewBase(mock.New(mock.Config{}))
	assert.Error(t, err)
}

func TestFindElementPollsUntilPresent(t *testing.T) {
	b, m := newTestBase(t, map[string]*mock.Element{
		field.Value: {Displayed: true, AppearAfter: 3},
	})
	id, err := b.FindElement(context.Background(), field, 0)
	require.NoError(t, err)
	assert.Equal(t, field.Value, id)
	assert.GreaterOrEqual(t, len(m.Calls()), 4)
}

func TestFindElementTimesOutWithScreenshot(t *testing.T) {
	b, m := newTestBase(t, nil)
	b.ExplicitWait = 20 * time.Millisecond

	_, err := b.FindElement(context.Background(), absent, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrWaitTimeout))
	assert.Contains(t, err.Error(), absent.String())
	assert.FileExists(t, filepath.Join(b.ScreenshotsDir, "timeout_exception.png"))

	screenshots := 0
	for _, c := range m.Calls() {
		if c == "Screenshot" {
			screenshots++
		}
	}
	// one per attempt: initial wait plus one retry
	assert.Equal(t, 2, screenshots)
}

func TestVisibility(t *testing.T) {
	b, _ := newTestBase(t, map[string]*mock.Element{
		button.Value: {Displayed: true},
		hidden.Value: {Displayed: false},
	})
	ctx := context.Background()

	assert.True(t, b.IsElementPresent(ctx, hidden))
	assert.False(t, b.IsElementVisible(ctx, hidden))
	assert.True(t, b.IsElementVisible(ctx, button))
	assert.False(t, b.IsElementPresent(ctx, absent))
}

func TestTapAndInput(t *testing.T) {
	b, m := newTestBase(t, map[string]*mock.Element{
		field.Value:  {Displayed: true, Text: "hello"},
		button.Value: {Displayed: true},
	})
	ctx := context.Background()

	require.NoError(t, b.InputText(ctx, field, "abc", true))
	require.NoError(t, b.InputText(ctx, field, "def", false))
	assert.Equal(t, "abcdef", m.Typed(field.Value))

	require.NoError(t, b.Tap(ctx, button))
	assert.Contains(t, m.Calls(), "Click "+button.Value)

	text, err := b.GetElementText(ctx, field)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestTakeScreenshot(t *testing.T) {
	b, _ := newTestBase(t, nil)

	path, err := b.TakeScreenshot("login page/failed")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(b.ScreenshotsDir, "login_page_failed.png"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, byte(0x89), data[0])

	path, err = b.TakeScreenshot("")
	require.NoError(t, err)
	assert.Contains(t, filepath.Base(path), "screenshot_")
}

func TestTakeScreenshotError(t *testing.T) {
	m := mock.New(mock.Config{ScreenshotErr: errors.New("no display")})
	b := &Base{Driver: m, ScreenshotsDir: t.TempDir()}
	_, err := b.TakeScreenshot("x")
	assert.EqualError(t, err, "no display")
}

func TestNavigationAndPageSource(t *testing.T) {
	b, m := newTestBase(t, nil)
	m.Config.Source = `<hierarchy><node text="Balance"/></hierarchy>`

	source, err := b.GetPageSource()
	require.NoError(t, err)
	assert.Contains(t, source, "Balance")
	require.NoError(t, b.Back())
	require.NoError(t, b.HideKeyboard())
	assert.Equal(t, []string{"PageSource", "Back", "HideKeyboard"}, m.Calls())
}

func TestScrollToText(t *testing.T) {
	scrollable := `new UiScrollable(new UiSelector().scrollable(true)).scrollIntoView(new UiSelector().text("Balance"))`
	b, m := newTestBase(t, map[string]*mock.Element{scrollable: {Displayed: true}})
	ctx := context.Background()

	require.NoError(t, b.ScrollToText(ctx, "Balance"))
	assert.Contains(t, m.Calls(), "FindElement "+core.ByAndroidUIAutomator+"="+scrollable)

	b.ExplicitWait = 20 * time.Millisecond
	err := b.ScrollToText(ctx, "Missing")
	assert.True(t, errors.Is(err, core.ErrWaitTimeout))
}

func TestScrollToTextFromPageSource(t *testing.T) {
	b, m := newTestBase(t, nil)
	b.Platform = "ios"
	m.Config.Source = `<XCUIElementTypeStaticText name="Balance"/>`

	require.NoError(t, b.ScrollToText(context.Background(), "Balance"))
	err := b.ScrollToText(context.Background(), "Transfers")
	assert.True(t, errors.Is(err, core.ErrElementNotFound))
}
