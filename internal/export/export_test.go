package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/starford/kenaz-export/internal/apperr"
	"github.com/starford/kenaz-export/internal/capability"
	"github.com/starford/kenaz-export/internal/convert"
	"github.com/starford/kenaz-export/internal/format"
	"github.com/starford/kenaz-export/internal/index"
	"github.com/starford/kenaz-export/internal/notify"
	"github.com/starford/kenaz-export/internal/render"
	"github.com/starford/kenaz-export/internal/storage"
	"github.com/starford/kenaz-export/internal/workspace"
)

// --- fakes ---

type rowLister struct {
	rows []index.DocumentRow
	err  error
}

func (l *rowLister) ListDocuments(context.Context) ([]index.DocumentRow, error) {
	return l.rows, l.err
}

type staticCaps capability.Map

func (s staticCaps) Current() capability.Map { return capability.Map(s) }

// checkingRenderer wraps the real renderer, records the order in which
// documents are rendered, verifies the view is the active document, and
// fails for documents listed in fail.
type checkingRenderer struct {
	host  *workspace.Workspace
	inner *render.Goldmark
	fail  map[string]bool
	block chan struct{}
	// onRender runs after a document has been recorded.
	onRender func(path string)

	mu       sync.Mutex
	rendered []string
	mismatch []string
}

func (r *checkingRenderer) record(view *workspace.View) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rendered = append(r.rendered, view.Document.Path)
	if active, ok := r.host.Active(); !ok || active.Path != view.Document.Path {
		r.mismatch = append(r.mismatch, view.Document.Path)
	}
	if r.onRender != nil {
		r.onRender(view.Document.Path)
	}
	if r.fail[view.Document.Path] {
		return fmt.Errorf("malformed content in %s", view.Document.Path)
	}
	return nil
}

func (r *checkingRenderer) Render(ctx context.Context, view *workspace.View, f format.Format) (*render.Output, error) {
	if err := r.record(view); err != nil {
		return nil, err
	}
	return r.inner.Render(ctx, view, f)
}

func (r *checkingRenderer) RenderFragment(ctx context.Context, view *workspace.View, f format.Format) (*render.Output, error) {
	if err := r.record(view); err != nil {
		return nil, err
	}
	return r.inner.RenderFragment(ctx, view, f)
}

func (r *checkingRenderer) Rendered() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.rendered...)
}

type failingWriter struct {
	storage.Writer
	failOn string
}

func (w failingWriter) WriteFile(ctx context.Context, path string, content []byte) error {
	if filepath.Base(path) == w.failOn {
		return errors.New("disk full")
	}
	return w.Writer.WriteFile(ctx, path, content)
}

type fakeConverter struct {
	mu   sync.Mutex
	reqs []convert.Request
}

func (c *fakeConverter) Convert(_ context.Context, req convert.Request) error {
	c.mu.Lock()
	c.reqs = append(c.reqs, req)
	c.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(req.OutputPath, req.HTML, 0o644)
}

// --- environment ---

type env struct {
	vault    string
	host     *workspace.Workspace
	lister   *rowLister
	renderer *checkingRenderer
	notices  *notify.Recorder
	exporter *Exporter
}

type envOption func(*Deps, *Layout)

func withWriter(w storage.Writer) envOption {
	return func(d *Deps, _ *Layout) { d.Writer = w }
}

func withCaps(c capability.Map) envOption {
	return func(d *Deps, _ *Layout) { d.Caps = staticCaps(c) }
}

func withConverter(c Converter) envOption {
	return func(d *Deps, _ *Layout) { d.Converter = c }
}

func withOutputFolder(dir string) envOption {
	return func(_ *Deps, l *Layout) { l.OutputFolder = dir }
}

// newEnv writes files into a temp vault; rows are listed in the given order.
func newEnv(t *testing.T, files [][2]string, opts ...envOption) *env {
	t.Helper()
	vault := t.TempDir()
	lister := &rowLister{}
	for _, f := range files {
		p := filepath.Join(vault, filepath.FromSlash(f[0]))
		_ = os.MkdirAll(filepath.Dir(p), 0o755)
		if err := os.WriteFile(p, []byte(f[1]), 0o644); err != nil {
			t.Fatal(err)
		}
		lister.rows = append(lister.rows, index.DocumentRow{Path: f[0]})
	}
	store, err := storage.NewFS(vault)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	host := workspace.New(store, lister, logger)
	rend := &checkingRenderer{host: host, inner: render.New(render.Options{}), fail: map[string]bool{}}
	rec := &notify.Recorder{}

	deps := Deps{
		Host:     host,
		Renderer: rend,
		Writer:   storage.NewOutput(),
		Caps:     staticCaps{},
		Sink:     rec,
		Logger:   logger,
	}
	layout := Layout{VaultRoot: store.Root()}
	for _, o := range opts {
		o(&deps, &layout)
	}
	return &env{
		vault:    store.Root(),
		host:     host,
		lister:   lister,
		renderer: rend,
		notices:  rec,
		exporter: New(deps, layout),
	}
}

func threeDocs() [][2]string {
	return [][2]string{
		{"a.md", "# Alpha\n\nLinks to [[b]].\n"},
		{"notes/b.md", "---\ntitle: Beta\n---\nBody of b.\n"},
		{"c.md", "Plain c.\n"},
	}
}

func readFile(t *testing.T, p string) string {
	t.Helper()
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read %s: %v", p, err)
	}
	return string(b)
}

// --- paths & eligibility ---

func TestOutputPath(t *testing.T) {
	html := format.MustLookup(format.HTML)
	got := OutputPath("/vault/notes/a.md", html, "")
	if got != filepath.Join("html", "a.html") {
		t.Errorf("OutputPath = %q, want html/a.html", got)
	}
	if again := OutputPath("/vault/notes/a.md", html, ""); again != got {
		t.Errorf("OutputPath not deterministic: %q vs %q", again, got)
	}
	withFolder := OutputPath("/vault/notes/a.md", format.MustLookup("latex"), "/out")
	if withFolder != filepath.Join("/out", "latex", "a.tex") {
		t.Errorf("OutputPath with folder = %q", withFolder)
	}
}

func TestMapPath(t *testing.T) {
	if got := MapPath("", ""); got != DefaultMapFilename {
		t.Errorf("MapPath = %q", got)
	}
	if got := MapPath("/out", "vault.html"); got != filepath.Join("/out", "vault.html") {
		t.Errorf("MapPath = %q", got)
	}
}

func TestLayoutOutputDirs(t *testing.T) {
	dirs := Layout{VaultRoot: "/vault"}.OutputDirs()
	if len(dirs) != len(format.All())-1 {
		t.Fatalf("dirs = %v", dirs)
	}
	for _, d := range dirs {
		if filepath.Dir(d) != "/vault" || filepath.Base(d) == format.Map {
			t.Errorf("unexpected dir %q", d)
		}
	}

	for _, out := range []string{"exports", "/vault/exports"} {
		dirs = Layout{VaultRoot: "/vault", OutputFolder: out}.OutputDirs()
		if len(dirs) != 1 || dirs[0] != filepath.Join("/vault", "exports") {
			t.Errorf("OutputFolder %q: dirs = %v", out, dirs)
		}
	}

	dirs = Layout{VaultRoot: "/vault", OutputFolder: "/vault"}.OutputDirs()
	if len(dirs) != len(format.All())-1 {
		t.Errorf("output folder at the vault root should fall back to subfolders: %v", dirs)
	}
}

func TestCanExport_ConverterMissing(t *testing.T) {
	caps := capability.Map{capability.TypesettingEngine: "/usr/bin/pdflatex"}
	for _, f := range format.All() {
		if !f.NeedsConverter {
			continue
		}
		for _, active := range []string{"", "a.md", "notes/b.markdown", "c.txt"} {
			if CanExport(f, active, caps) {
				t.Errorf("CanExport(%s, %q) = true without converter", f.Name, active)
			}
		}
	}
}

func TestCanExport_TypesetterMissing(t *testing.T) {
	caps := capability.Map{capability.DocumentConverter: "/usr/bin/pandoc"}
	if CanExport(format.MustLookup(format.PDF), "a.md", caps) {
		t.Error("pdf should need the typesetting engine")
	}
	if !CanExport(format.MustLookup("docx"), "a.md", caps) {
		t.Error("docx should be exportable with the converter")
	}
}

func TestCanExport_UnsupportedInput(t *testing.T) {
	caps := capability.Map{
		capability.DocumentConverter: "/usr/bin/pandoc",
		capability.TypesettingEngine: "/usr/bin/pdflatex",
	}
	for _, f := range format.All() {
		for _, active := range []string{"image.png", "board.canvas", "README"} {
			if CanExport(f, active, caps) {
				t.Errorf("CanExport(%s, %q) = true", f.Name, active)
			}
		}
	}
}

func TestCanExport_InProcessFormats(t *testing.T) {
	for _, name := range []string{format.HTML, format.Map} {
		f := format.MustLookup(name)
		if !CanExport(f, "notes/a.md", capability.Map{}) {
			t.Errorf("%s should be exportable without external tools", name)
		}
		if CanExport(f, "", capability.Map{}) {
			t.Errorf("%s should not be exportable without an active document", name)
		}
	}
}

func TestExporterCanExport_FollowsActiveDocument(t *testing.T) {
	e := newEnv(t, threeDocs())
	html := format.MustLookup(format.HTML)
	if e.exporter.CanExport(html) {
		t.Fatal("no active document yet")
	}
	doc, _ := e.host.Document(context.Background(), "c.md")
	_ = e.host.SetActive(context.Background(), doc)
	if !e.exporter.CanExport(html) {
		t.Error("expected html to be exportable once a document is active")
	}
}

// --- planning ---

func TestPlan_OneJobPerDocumentInOrder(t *testing.T) {
	e := newEnv(t, threeDocs())
	b, err := e.exporter.Plan(context.Background(), format.MustLookup(format.HTML))
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(b.Jobs) != 3 {
		t.Fatalf("jobs = %d, want 3", len(b.Jobs))
	}
	wantIn := []string{"a.md", "notes/b.md", "c.md"}
	wantOut := []string{"a.html", "b.html", "c.html"}
	for i, j := range b.Jobs {
		if j.Document.Path != wantIn[i] {
			t.Errorf("job %d document = %q, want %q", i, j.Document.Path, wantIn[i])
		}
		if j.InputPath != filepath.Join(e.vault, filepath.FromSlash(wantIn[i])) {
			t.Errorf("job %d input = %q", i, j.InputPath)
		}
		if j.OutputPath != filepath.Join(e.vault, "html", wantOut[i]) {
			t.Errorf("job %d output = %q", i, j.OutputPath)
		}
		if j.Fragment {
			t.Errorf("job %d should not be a fragment job", i)
		}
	}
	if b.ID == "" || b.Setup != nil || b.Complete != nil {
		t.Errorf("unexpected batch shape: %+v", b)
	}
}

func TestPlan_OutputFolder(t *testing.T) {
	out := t.TempDir()
	e := newEnv(t, threeDocs(), withOutputFolder(out))
	b, _ := e.exporter.Plan(context.Background(), format.MustLookup(format.HTML))
	if b.Jobs[0].OutputPath != filepath.Join(out, "html", "a.html") {
		t.Errorf("output = %q", b.Jobs[0].OutputPath)
	}
	m, _ := e.exporter.Plan(context.Background(), format.MustLookup(format.Map))
	if m.Destination != filepath.Join(out, DefaultMapFilename) {
		t.Errorf("map destination = %q", m.Destination)
	}
}

func TestExportAll_EnumerationFailurePropagates(t *testing.T) {
	e := newEnv(t, threeDocs())
	e.lister.err = errors.New("index unavailable")
	if _, err := e.exporter.ExportAll(context.Background(), format.HTML); err == nil {
		t.Fatal("expected enumeration error")
	}
	if n := len(e.notices.Notices()); n != 0 {
		t.Errorf("notices = %d, want none", n)
	}
}

func TestExportAll_UnknownFormat(t *testing.T) {
	e := newEnv(t, threeDocs())
	if _, err := e.exporter.ExportAll(context.Background(), "bmp"); !errors.Is(err, apperr.ErrUnknownFormat) {
		t.Errorf("err = %v, want ErrUnknownFormat", err)
	}
}

// --- execution ---

func TestExportAll_HTML(t *testing.T) {
	e := newEnv(t, threeDocs())
	sum, err := e.exporter.ExportAll(context.Background(), format.HTML)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if sum.Succeeded != 3 || sum.Failed != 0 {
		t.Errorf("summary = %+v", sum)
	}
	if got := strings.Join(e.renderer.Rendered(), ","); got != "a.md,notes/b.md,c.md" {
		t.Errorf("render order = %s", got)
	}
	if len(e.renderer.mismatch) != 0 {
		t.Errorf("rendered without being active: %v", e.renderer.mismatch)
	}
	page := readFile(t, filepath.Join(e.vault, "html", "b.html"))
	if !strings.Contains(page, "<title>Beta</title>") {
		t.Errorf("b.html = %s", page)
	}
	if active, _ := e.host.Active(); active.Path != "c.md" {
		t.Errorf("last job should leave c.md active, got %q", active.Path)
	}
}

func TestExportAll_FailureIsIsolated(t *testing.T) {
	e := newEnv(t, threeDocs())
	e.renderer.fail["notes/b.md"] = true

	sum, err := e.exporter.ExportAll(context.Background(), format.HTML)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if sum.Succeeded != 2 || sum.Failed != 1 {
		t.Errorf("summary = %+v", sum)
	}
	if got := strings.Join(e.renderer.Rendered(), ","); got != "a.md,notes/b.md,c.md" {
		t.Errorf("render order = %s", got)
	}
	if _, err := os.Stat(filepath.Join(e.vault, "html", "c.html")); err != nil {
		t.Errorf("job after the failure did not run: %v", err)
	}

	notices := e.notices.Notices()
	if len(notices) != 6 {
		t.Fatalf("notices = %d, want 6", len(notices))
	}
	if e.notices.Count(notify.KindStarted) != 3 || e.notices.Count(notify.KindSucceeded) != 2 || e.notices.Count(notify.KindFailed) != 1 {
		t.Errorf("notice kinds = %+v", notices)
	}
	failed := notices[3]
	if failed.Kind != notify.KindFailed || failed.Duration != notify.FailureDuration {
		t.Errorf("failure notice = %+v", failed)
	}
	if !strings.Contains(failed.Text, "malformed content") {
		t.Errorf("failure text = %q", failed.Text)
	}
	ok := notices[1]
	if !strings.Contains(ok.Text, ok.Input) || !strings.Contains(ok.Text, ok.Output) {
		t.Errorf("success text should name input and output: %q", ok.Text)
	}
}

func TestExportAll_WriteFailureIsIsolated(t *testing.T) {
	e := newEnv(t, threeDocs(), withWriter(failingWriter{Writer: storage.NewOutput(), failOn: "a.html"}))
	sum, err := e.exporter.ExportAll(context.Background(), format.HTML)
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if sum.Failed != 1 || !strings.Contains(sum.Outcomes[0].Err.Error(), "disk full") {
		t.Errorf("summary = %+v", sum)
	}
	if sum.Outcomes[1].Err != nil || sum.Outcomes[2].Err != nil {
		t.Errorf("later jobs failed: %+v", sum.Outcomes)
	}
}

func TestExportAll_Idempotent(t *testing.T) {
	e := newEnv(t, threeDocs())
	ctx := context.Background()
	if _, err := e.exporter.ExportAll(ctx, format.HTML); err != nil {
		t.Fatal(err)
	}
	first := map[string]string{}
	for _, n := range []string{"a.html", "b.html", "c.html"} {
		first[n] = readFile(t, filepath.Join(e.vault, "html", n))
	}
	if _, err := e.exporter.ExportAll(ctx, format.HTML); err != nil {
		t.Fatal(err)
	}
	for n, want := range first {
		if got := readFile(t, filepath.Join(e.vault, "html", n)); got != want {
			t.Errorf("%s changed between runs", n)
		}
	}
}

func TestExportAll_MissingCapabilityFailsEachJob(t *testing.T) {
	e := newEnv(t, threeDocs())
	sum, err := e.exporter.ExportAll(context.Background(), "docx")
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if sum.Failed != 3 {
		t.Fatalf("summary = %+v", sum)
	}
	for _, o := range sum.Outcomes {
		if !errors.Is(o.Err, apperr.ErrCapabilityMissing) {
			t.Errorf("err = %v, want ErrCapabilityMissing", o.Err)
		}
	}
	if len(e.renderer.Rendered()) != 0 {
		t.Error("renderer should not run without the converter")
	}
}

func TestExportAll_ConverterFormats(t *testing.T) {
	conv := &fakeConverter{}
	e := newEnv(t, threeDocs(),
		withCaps(capability.Map{capability.DocumentConverter: "/usr/bin/pandoc"}),
		withConverter(conv))
	sum, err := e.exporter.ExportAll(context.Background(), "docx")
	if err != nil {
		t.Fatalf("ExportAll: %v", err)
	}
	if sum.Succeeded != 3 {
		t.Fatalf("summary = %+v", sum)
	}
	if len(conv.reqs) != 3 || conv.reqs[1].Title != "Beta" || conv.reqs[1].Format.Name != "docx" {
		t.Errorf("converter requests = %+v", conv.reqs)
	}
	if conv.reqs[2].Tools[capability.DocumentConverter] != "/usr/bin/pandoc" {
		t.Errorf("converter should receive the batch's capability map: %v", conv.reqs[2].Tools)
	}
	if !strings.HasSuffix(conv.reqs[0].OutputPath, filepath.Join("docx", "a.docx")) {
		t.Errorf("output = %q", conv.reqs[0].OutputPath)
	}
}

func TestExportAll_OneBatchAtATime(t *testing.T) {
	e := newEnv(t, threeDocs())
	e.renderer.block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := e.exporter.ExportAll(context.Background(), format.HTML)
		done <- err
	}()

	// Wait until the first batch holds the slot.
	deadline := time.Now().Add(2 * time.Second)
	for len(e.notices.Notices()) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := e.exporter.ExportAll(context.Background(), format.Map); !errors.Is(err, apperr.ErrBatchRunning) {
		t.Errorf("err = %v, want ErrBatchRunning", err)
	}
	close(e.renderer.block)
	if err := <-done; err != nil {
		t.Fatalf("first batch: %v", err)
	}
}

func TestReserve_ClaimsSlotUntilRun(t *testing.T) {
	e := newEnv(t, threeDocs())
	ctx := context.Background()

	if _, err := e.exporter.Reserve("bmp"); !errors.Is(err, apperr.ErrUnknownFormat) {
		t.Fatalf("err = %v, want ErrUnknownFormat", err)
	}
	if e.exporter.Busy() {
		t.Fatal("unknown format must not claim the slot")
	}

	run, err := e.exporter.Reserve(format.HTML)
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !e.exporter.Busy() {
		t.Error("Busy = false after Reserve")
	}
	if _, err := e.exporter.Reserve(format.Map); !errors.Is(err, apperr.ErrBatchRunning) {
		t.Errorf("second Reserve = %v, want ErrBatchRunning", err)
	}
	if len(e.notices.Notices()) != 0 {
		t.Error("Reserve must not start the batch")
	}

	sum, err := run(ctx)
	if err != nil || sum.Succeeded != 3 {
		t.Fatalf("run = %+v, %v", sum, err)
	}
	if e.exporter.Busy() {
		t.Error("slot still held after the batch returned")
	}
	if _, err := e.exporter.ExportAll(ctx, format.Map); err != nil {
		t.Errorf("ExportAll after release: %v", err)
	}
}

func TestNew_DefaultsLoggerAndSink(t *testing.T) {
	e := newEnv(t, threeDocs(), func(d *Deps, _ *Layout) {
		d.Logger = nil
		d.Sink = nil
	})
	sum, err := e.exporter.ExportAll(context.Background(), format.HTML)
	if err != nil || sum.Succeeded != 3 {
		t.Fatalf("ExportAll = %+v, %v", sum, err)
	}
}

// --- map ---

func TestExportMap(t *testing.T) {
	e := newEnv(t, threeDocs())
	sum, err := e.exporter.ExportAll(context.Background(), format.Map)
	if err != nil {
		t.Fatalf("ExportAll(map): %v", err)
	}
	if sum.Succeeded != 3 {
		t.Fatalf("summary = %+v", sum)
	}
	out := readFile(t, filepath.Join(e.vault, DefaultMapFilename))
	if !strings.HasPrefix(out, MapPreamble) {
		t.Error("map does not start with the preamble")
	}
	if !strings.HasSuffix(out, MapPostamble) {
		t.Error("map does not end with the postamble")
	}
	body := strings.TrimSuffix(strings.TrimPrefix(out, MapPreamble), MapPostamble)
	if n := strings.Count(body, `<section class="note"`); n != 3 {
		t.Fatalf("fragments = %d, want 3", n)
	}
	ia := strings.Index(body, `data-path="a.md"`)
	ib := strings.Index(body, `data-path="notes/b.md"`)
	ic := strings.Index(body, `data-path="c.md"`)
	if !(ia >= 0 && ia < ib && ib < ic) {
		t.Errorf("fragments out of order: a=%d b=%d c=%d", ia, ib, ic)
	}
	if !strings.Contains(body, `href="#note-b"`) {
		t.Error("wikilink should target the fragment anchor")
	}
	for _, n := range e.notices.Notices() {
		if n.Kind == notify.KindSucceeded && n.Output != filepath.Join(e.vault, DefaultMapFilename) {
			t.Errorf("success notice output = %q", n.Output)
		}
	}
}

func TestExportMap_TruncatesPreviousRun(t *testing.T) {
	e := newEnv(t, threeDocs())
	ctx := context.Background()
	if _, err := e.exporter.ExportAll(ctx, format.Map); err != nil {
		t.Fatal(err)
	}
	first := readFile(t, filepath.Join(e.vault, DefaultMapFilename))
	if _, err := e.exporter.ExportAll(ctx, format.Map); err != nil {
		t.Fatal(err)
	}
	if second := readFile(t, filepath.Join(e.vault, DefaultMapFilename)); second != first {
		t.Error("second map run should replace, not extend, the first")
	}
}

func TestExportMap_FailedFragmentSkipped(t *testing.T) {
	e := newEnv(t, threeDocs())
	e.renderer.fail["a.md"] = true
	if _, err := e.exporter.ExportAll(context.Background(), format.Map); err != nil {
		t.Fatal(err)
	}
	out := readFile(t, filepath.Join(e.vault, DefaultMapFilename))
	if strings.Count(out, `<section class="note"`) != 2 || !strings.HasSuffix(out, MapPostamble) {
		t.Errorf("map = %s", out)
	}
}

func TestExportMap_AbortLeavesTruncatedFile(t *testing.T) {
	e := newEnv(t, threeDocs())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.renderer.onRender = func(string) { cancel() }

	sum, err := e.exporter.ExportAll(ctx, format.Map)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(sum.Outcomes) != 1 {
		t.Errorf("outcomes = %d, want 1", len(sum.Outcomes))
	}
	out := readFile(t, filepath.Join(e.vault, DefaultMapFilename))
	if !strings.HasPrefix(out, MapPreamble) {
		t.Error("preamble missing")
	}
	if strings.HasSuffix(out, MapPostamble) {
		t.Error("an abandoned batch must not write the postamble")
	}
}

func TestExportMap_SetupFailureAbortsBatch(t *testing.T) {
	e := newEnv(t, threeDocs(), withOutputFolder("/dev/null/not-a-dir"))
	if _, err := e.exporter.ExportAll(context.Background(), format.Map); err == nil {
		t.Fatal("expected preamble write error")
	}
	if len(e.renderer.Rendered()) != 0 || len(e.notices.Notices()) != 0 {
		t.Error("no job should run when the preamble cannot be written")
	}
}
