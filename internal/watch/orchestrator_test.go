package watch

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/termin-watch/internal/alert"
	"github.com/maltedev/termin-watch/internal/dom"
	"github.com/maltedev/termin-watch/internal/dom/domtest"
	"github.com/maltedev/termin-watch/internal/history"
	"github.com/maltedev/termin-watch/internal/slots"
	"github.com/maltedev/termin-watch/internal/storage"
)

const serviceLabel = "Erstzulassung (eines Gebrauchtfahrzeuges aus dem Ausland)"

var testHeaders = []string{
	"Zulassungsstelle Ober-Ramstadt, Termine ab 05.01.2026, 13:15 Uhr",
	"Zulassungsstelle Dieburg, Termine ab 12.01.2026, 08:00 Uhr",
	"Zulassungsstelle Pfungstadt",
}

const expectedMessage = "Zulassungsstelle Ober-Ramstadt: Termin ab 05.01.2026, 13:15 Uhr (heute/morgen!)"

type fakeSession struct {
	page   dom.Page
	closed int
}

func (s *fakeSession) Page() dom.Page { return s.page }

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

type recordingChannel struct {
	sent []alert.Alert
}

func (c *recordingChannel) Name() string { return "recording" }

func (c *recordingChannel) Send(ctx context.Context, a alert.Alert) error {
	c.sent = append(c.sent, a)
	return nil
}

type recordingRecorder struct {
	cycles []history.Cycle
	err    error
}

func (r *recordingRecorder) Record(ctx context.Context, c history.Cycle) error {
	r.cycles = append(r.cycles, c)
	return r.err
}

type recordingObserver struct {
	reports []Report
	mems    []alert.Memory
}

func (o *recordingObserver) Observe(rep Report, mem alert.Memory) {
	o.reports = append(o.reports, rep)
	o.mems = append(o.mems, mem)
}

type harness struct {
	orch      *Orchestrator
	clock     *domtest.Clock
	channel   *recordingChannel
	sessions  []*fakeSession
	forms     []*domtest.Form
	console   *bytes.Buffer
	logs      *bytes.Buffer
	artifacts *storage.Artifacts
	formOpts  domtest.FormOptions
	openErr   error
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logs := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(logs, nil))

	h := &harness{
		clock:   domtest.NewClock(time.Date(2026, time.January, 5, 9, 0, 0, 0, slots.Zone)),
		channel: &recordingChannel{},
		console: &bytes.Buffer{},
		logs:    logs,
		formOpts: domtest.FormOptions{
			Label:              serviceLabel,
			Headers:            testHeaders,
			CookieBanner:       true,
			ConfirmDialog:      true,
			SubmitEnabledAfter: time.Second,
		},
	}

	artifacts, err := storage.NewArtifacts(filepath.Join(t.TempDir(), "debug"))
	require.NoError(t, err)
	h.artifacts = artifacts

	opener := OpenerFunc(func(ctx context.Context) (Session, error) {
		if h.openErr != nil {
			return nil, h.openErr
		}
		form := domtest.NewForm(h.clock, h.formOpts)
		sess := &fakeSession{page: form.Page}
		h.forms = append(h.forms, form)
		h.sessions = append(h.sessions, sess)
		return sess, nil
	})

	dispatcher := alert.NewDispatcher("LaDaDi: Termin frei!", logger, h.channel)
	h.orch = New(opener, dispatcher, DefaultOptions(), logger).
		WithClock(h.clock.Now).
		WithConsole(h.console).
		WithArtifacts(artifacts)
	return h
}

func TestOrchestrator_RunOnce(t *testing.T) {
	h := newHarness(t)

	hits, all, err := h.orch.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, all, 2)
	require.Len(t, hits, 1)
	assert.Equal(t, "Zulassungsstelle Ober-Ramstadt", hits[0].Location)

	require.Len(t, h.forms, 1)
	assert.Equal(t, 1, h.forms[0].Value())
	assert.Equal(t, []string{DefaultOptions().StartURL}, h.forms[0].Page.Navigations)
	assert.Equal(t, 1, h.sessions[0].closed)

	assert.Empty(t, h.channel.sent, "RunOnce never alerts")

	_, err = os.Stat(filepath.Join(h.artifacts.Dir(), "found_debug.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(h.artifacts.Dir(), "found_debug.html"))
	assert.NoError(t, err)
}

func TestOrchestrator_CycleAlertsOnce(t *testing.T) {
	h := newHarness(t)
	rec := &recordingRecorder{}
	obs := &recordingObserver{}
	h.orch.WithRecorder(rec).WithObserver(obs)
	ctx := context.Background()

	first := h.orch.Cycle(ctx)
	require.NoError(t, first.Err)
	require.Len(t, first.Dispatched, 1)
	require.Len(t, h.channel.sent, 1)
	assert.Equal(t, expectedMessage, h.channel.sent[0].Message)
	assert.Equal(t, "LaDaDi: Termin frei!", h.channel.sent[0].Title)
	assert.Contains(t, h.console.String(), "✅ "+expectedMessage)

	second := h.orch.Cycle(ctx)
	require.NoError(t, second.Err)
	assert.Len(t, second.Hits, 1)
	assert.Empty(t, second.Dispatched)
	assert.Len(t, h.channel.sent, 1, "unchanged slot is not alerted again")
	assert.Contains(t, h.console.String(), "🔁 (bereits gemeldet) Zulassungsstelle Ober-Ramstadt: 05.01.2026 13:15")

	assert.Equal(t, alert.Signature("05.01.2026 13:15"), h.orch.Memory()["Zulassungsstelle Ober-Ramstadt"])

	require.Len(t, rec.cycles, 2)
	assert.Equal(t, first.ID, rec.cycles[0].ID)
	assert.Equal(t, 1, rec.cycles[0].Dispatched)
	assert.Equal(t, 0, rec.cycles[1].Dispatched)
	assert.Empty(t, rec.cycles[0].Err)

	require.Len(t, obs.reports, 2)
	assert.Len(t, obs.mems[0], 1)
	assert.True(t, obs.reports[0].Duration > 0)

	for _, s := range h.sessions {
		assert.Equal(t, 1, s.closed)
	}
}

func TestOrchestrator_CycleNoRelevantSlots(t *testing.T) {
	h := newHarness(t)
	h.formOpts.Headers = []string{"Zulassungsstelle Dieburg, Termine ab 12.01.2026, 08:00 Uhr"}

	rep := h.orch.Cycle(context.Background())
	require.NoError(t, rep.Err)
	assert.Len(t, rep.All, 1)
	assert.Empty(t, rep.Hits)
	assert.Empty(t, h.channel.sent)
	assert.Contains(t, h.console.String(), "❌ Kein Termin heute/morgen.")
	assert.Empty(t, h.artifacts.List())
}

func TestOrchestrator_CycleFailure(t *testing.T) {
	h := newHarness(t)
	h.formOpts.Label = "Abmeldung eines Oldtimers"
	rec := &recordingRecorder{err: errors.New("connection refused")}
	h.orch.WithRecorder(rec)

	rep := h.orch.Cycle(context.Background())
	require.Error(t, rep.Err)
	assert.True(t, strings.HasPrefix(rep.Err.Error(), "set_counter: "))
	assert.Empty(t, h.channel.sent)
	assert.Contains(t, h.console.String(), "ERROR: set_counter")

	require.Len(t, h.sessions, 1)
	assert.Equal(t, 1, h.sessions[0].closed)

	list := h.artifacts.List()
	require.Len(t, list, 1)
	assert.Equal(t, "ladadi_debug", list[0].Name)
	assert.Contains(t, list[0].Reason, "set_counter")

	require.Len(t, rec.cycles, 1)
	assert.Contains(t, rec.cycles[0].Err, "set_counter")
}

func TestOrchestrator_CaptureFailureNotReportedAsSaved(t *testing.T) {
	h := newHarness(t)
	h.formOpts.Label = "Abmeldung eines Oldtimers"
	require.NoError(t, os.RemoveAll(h.artifacts.Dir()))

	rep := h.orch.Cycle(context.Background())
	require.Error(t, rep.Err)

	assert.Contains(t, h.logs.String(), "debug capture incomplete")
	assert.NotContains(t, h.logs.String(), "debug capture saved")
}

func TestOrchestrator_NavigateFailure(t *testing.T) {
	h := newHarness(t)
	opener := h.orch.opener
	h.orch.opener = OpenerFunc(func(ctx context.Context) (Session, error) {
		sess, err := opener.Open(ctx)
		if err == nil {
			h.forms[len(h.forms)-1].Page.NavigateErr = errors.New("net::ERR_NAME_NOT_RESOLVED")
		}
		return sess, err
	})

	_, _, err := h.orch.RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, "navigate: net::ERR_NAME_NOT_RESOLVED", err.Error())
	assert.Equal(t, 1, h.sessions[0].closed)
}

func TestOrchestrator_OpenFailure(t *testing.T) {
	h := newHarness(t)
	h.openErr = errors.New("browser not installed")

	rep := h.orch.Cycle(context.Background())
	require.Error(t, rep.Err)
	assert.Equal(t, "open session: browser not installed", rep.Err.Error())
	assert.Empty(t, h.sessions)
	assert.Empty(t, h.artifacts.List())
}

func TestOrchestrator_Replay(t *testing.T) {
	h := newHarness(t)
	html := `<html><body><div id="accordion">
		<h3 class="ui-accordion-header" title="Zulassungsstelle Ober-Ramstadt, Termine ab 05.01.2026, 13:15 Uhr">Ober-Ramstadt</h3>
		<h3 class="ui-accordion-header">Zulassungsstelle Dieburg, Termine ab 06.01.2026, 08:00 Uhr</h3>
		<h3 class="ui-accordion-header" title="Zulassungsstelle Pfungstadt">Pfungstadt</h3>
	</div></body></html>`

	rep := h.orch.Replay(context.Background(), strings.NewReader(html))
	require.NoError(t, rep.Err)
	assert.Len(t, rep.All, 2)
	assert.Len(t, rep.Dispatched, 2)
	require.Len(t, h.channel.sent, 2)
	assert.Equal(t, expectedMessage, h.channel.sent[0].Message)
	assert.Empty(t, h.sessions, "replay opens no session")
}

func TestOrchestrator_RunStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := h.orch.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, h.sessions, 1, "the running cycle completes before stopping")
	assert.Len(t, h.channel.sent, 1)
}
