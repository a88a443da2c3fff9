package alttext

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alt-text-ai-api/internal/domain/entity"
	"alt-text-ai-api/internal/infrastructure/messaging"
	apperrors "alt-text-ai-api/pkg/errors"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")

type fakeCredentials struct {
	data []byte
}

func (f *fakeCredentials) Exists() bool { return f.data != nil }

func (f *fakeCredentials) Read() ([]byte, error) {
	if f.data == nil {
		return nil, errors.New("missing")
	}
	return f.data, nil
}

type fakeDetector struct {
	labels []entity.Label
	err    error
	calls  int
	images [][]byte
}

func (d *fakeDetector) DetectLabels(_ context.Context, image []byte) ([]entity.Label, error) {
	d.calls++
	d.images = append(d.images, image)
	return d.labels, d.err
}

type fakeFactory struct {
	detector *fakeDetector
	creds    [][]byte
}

func (f *fakeFactory) New(_ context.Context, credJSON []byte) (LabelDetector, error) {
	f.creds = append(f.creds, credJSON)
	return f.detector, nil
}

type fakeAttachments struct {
	records map[uint64]*entity.Attachment
	written map[uint64]string
	labels  map[uint64][]string
	err     error
}

func newFakeAttachments(records ...*entity.Attachment) *fakeAttachments {
	f := &fakeAttachments{
		records: map[uint64]*entity.Attachment{},
		written: map[uint64]string{},
		labels:  map[uint64][]string{},
	}
	for _, r := range records {
		f.records[r.ID] = r
	}
	return f
}

func (f *fakeAttachments) GetByID(_ context.Context, id uint64) (*entity.Attachment, error) {
	return f.records[id], nil
}

func (f *fakeAttachments) UpdateAltText(_ context.Context, id uint64, altText string, labels []string) error {
	if f.err != nil {
		return f.err
	}
	f.written[id] = altText
	f.labels[id] = labels
	return nil
}

type fakeSubscriber struct {
	handlers map[string]messaging.MessageHandler
}

func newFakeSubscriber() *fakeSubscriber {
	return &fakeSubscriber{handlers: map[string]messaging.MessageHandler{}}
}

func (s *fakeSubscriber) RegisterHandler(msgType string, h messaging.MessageHandler) {
	s.handlers[msgType] = h
}

func (s *fakeSubscriber) UnregisterHandler(msgType string) {
	delete(s.handlers, msgType)
}

func labels(pairs ...any) []entity.Label {
	out := make([]entity.Label, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, entity.NewLabel(pairs[i].(string), pairs[i+1].(float64)))
	}
	return out
}

func TestBuildAltText(t *testing.T) {
	tests := []struct {
		name   string
		labels []entity.Label
		want   string
	}{
		{"filters and joins", labels("cat", 0.95, "pet", 0.9, "whiskers", 0.7), "cat, pet"},
		{"nothing above threshold", labels("blur", 0.5), ""},
		{"empty", nil, ""},
		{"threshold is strict", labels("edge", 0.8, "above", 0.8000001), "above"},
		{"keeps order and duplicates", labels("b", 0.99, "a", 0.81, "b", 0.9), "b, a, b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildAltText(tt.labels))
		})
	}
}

func TestBuildAltTextWithThreshold(t *testing.T) {
	in := labels("cat", 0.95, "pet", 0.9, "whiskers", 0.7)
	assert.Equal(t, "cat, pet, whiskers", BuildAltTextWithThreshold(in, 0.5))
	assert.Equal(t, "cat", BuildAltTextWithThreshold(in, 0.9))
}

type fixture struct {
	fs       afero.Fs
	factory  *fakeFactory
	detector *fakeDetector
	repo     *fakeAttachments
	sub      *fakeSubscriber
	creds    *fakeCredentials
}

func newFixture(t *testing.T, records ...*entity.Attachment) *fixture {
	t.Helper()
	detector := &fakeDetector{}
	return &fixture{
		fs:       afero.NewMemMapFs(),
		detector: detector,
		factory:  &fakeFactory{detector: detector},
		repo:     newFakeAttachments(records...),
		sub:      newFakeSubscriber(),
		creds:    &fakeCredentials{data: []byte(`{"type":"service_account"}`)},
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Credentials: f.creds,
		NewDetector: f.factory.New,
		Attachments: f.repo,
		Subscriber:  f.sub,
		Fs:          f.fs,
	}
}

func (f *fixture) activate(t *testing.T) *Generator {
	t.Helper()
	g, active, err := Activate(context.Background(), f.deps())
	require.NoError(t, err)
	require.True(t, active)
	return g
}

func TestActivateWithoutCredentialFile(t *testing.T) {
	f := newFixture(t)
	f.creds.data = nil

	g, active, err := Activate(context.Background(), f.deps())
	require.NoError(t, err)
	assert.False(t, active)
	assert.Nil(t, g)
	assert.Empty(t, f.sub.handlers)
	assert.Empty(t, f.factory.creds)
}

func TestActivateRegistersHandlerWithCredentialBytes(t *testing.T) {
	f := newFixture(t)
	f.creds.data = []byte(`{"type":"service_account","project_id":"p2"}`)

	f.activate(t)

	require.Len(t, f.factory.creds, 1)
	assert.Equal(t, `{"type":"service_account","project_id":"p2"}`, string(f.factory.creds[0]))
	assert.Contains(t, f.sub.handlers, messaging.TypeAddAttachment)
}

func TestOnImageAttachedWritesAltText(t *testing.T) {
	f := newFixture(t, &entity.Attachment{ID: 42, FilePath: "/uploads/car.png", MimeType: "image/png"})
	require.NoError(t, afero.WriteFile(f.fs, "/uploads/car.png", pngHeader, 0o644))
	f.detector.labels = labels("Car", 0.97, "Vehicle", 0.93, "Tire", 0.6)

	out, err := f.activate(t).OnImageAttached(context.Background(), 42)
	require.NoError(t, err)

	assert.Equal(t, "Car, Vehicle", out.AltText)
	assert.Empty(t, out.Skipped)
	assert.Equal(t, "Car, Vehicle", f.repo.written[42])
	assert.Equal(t, []string{"Car", "Vehicle", "Tire"}, f.repo.labels[42])
	require.Len(t, f.detector.images, 1)
	assert.Equal(t, pngHeader, f.detector.images[0])
}

func TestOnImageAttachedOverwritesWithEmptyAltText(t *testing.T) {
	f := newFixture(t, &entity.Attachment{ID: 7, FilePath: "/u/a.png", MimeType: "image/png", AltText: "old"})
	require.NoError(t, afero.WriteFile(f.fs, "/u/a.png", pngHeader, 0o644))
	f.detector.labels = labels("blur", 0.5)

	out, err := f.activate(t).OnImageAttached(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, "", out.AltText)
	written, ok := f.repo.written[7]
	assert.True(t, ok)
	assert.Equal(t, "", written)
}

func TestOnImageAttachedSkipsNonImages(t *testing.T) {
	f := newFixture(t,
		&entity.Attachment{ID: 1, FilePath: "/u/doc.pdf", MimeType: "application/pdf"},
		&entity.Attachment{ID: 2, FilePath: "/u/notes.txt"},
	)
	require.NoError(t, afero.WriteFile(f.fs, "/u/notes.txt", []byte("plain text notes"), 0o644))
	g := f.activate(t)

	out, err := g.OnImageAttached(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, SkipNotImage, out.Skipped)

	out, err = g.OnImageAttached(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, SkipNotImage, out.Skipped)

	assert.Zero(t, f.detector.calls)
	assert.Empty(t, f.repo.written)
}

func TestOnImageAttachedSniffsUndeclaredImage(t *testing.T) {
	f := newFixture(t, &entity.Attachment{ID: 3, FilePath: "/u/x"})
	require.NoError(t, afero.WriteFile(f.fs, "/u/x", pngHeader, 0o644))
	f.detector.labels = labels("Dog", 0.9)

	out, err := f.activate(t).OnImageAttached(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Dog", out.AltText)
}

func TestOnImageAttachedMissingFile(t *testing.T) {
	f := newFixture(t, &entity.Attachment{ID: 5, FilePath: "/u/gone.jpg", MimeType: "image/jpeg"})

	_, err := f.activate(t).OnImageAttached(context.Background(), 5)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeImageFileNotFound))
	assert.Zero(t, f.detector.calls)
	assert.Empty(t, f.repo.written)
}

func TestOnImageAttachedMissingRecord(t *testing.T) {
	f := newFixture(t)
	_, err := f.activate(t).OnImageAttached(context.Background(), 99)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAttachmentNotFound))
}

func TestOnImageAttachedDetectionFailure(t *testing.T) {
	f := newFixture(t, &entity.Attachment{ID: 8, FilePath: "/u/a.png", MimeType: "image/png", AltText: "keep"})
	require.NoError(t, afero.WriteFile(f.fs, "/u/a.png", pngHeader, 0o644))
	f.detector.err = errors.New("quota exceeded")

	_, err := f.activate(t).OnImageAttached(context.Background(), 8)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeLabelDetectionFailed))
	assert.ErrorContains(t, err, "quota exceeded")
	assert.Equal(t, 1, f.detector.calls)
	assert.Empty(t, f.repo.written)
}

func TestOnImageAttachedWriteFailure(t *testing.T) {
	f := newFixture(t, &entity.Attachment{ID: 9, FilePath: "/u/a.png", MimeType: "image/png"})
	require.NoError(t, afero.WriteFile(f.fs, "/u/a.png", pngHeader, 0o644))
	f.detector.labels = labels("Cat", 0.99)
	f.repo.err = errors.New("connection reset")

	_, err := f.activate(t).OnImageAttached(context.Background(), 9)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAltTextWriteFailed))
}

func TestPreserveManualAltText(t *testing.T) {
	record := &entity.Attachment{
		ID: 11, FilePath: "/u/a.png", MimeType: "image/png",
		AltText: "My grandmother's cat", AltTextSource: entity.AltTextSourceManual,
	}
	f := newFixture(t, record)
	require.NoError(t, afero.WriteFile(f.fs, "/u/a.png", pngHeader, 0o644))
	f.detector.labels = labels("Cat", 0.99)

	deps := f.deps()
	deps.PreserveManual = true
	g, _, err := Activate(context.Background(), deps)
	require.NoError(t, err)

	out, err := g.OnImageAttached(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, SkipManualAltText, out.Skipped)
	assert.Empty(t, f.repo.written)
	assert.Zero(t, f.detector.calls)

	// 默认行为覆盖人工填写的 alt text
	out, err = f.activate(t).OnImageAttached(context.Background(), 11)
	require.NoError(t, err)
	assert.Empty(t, out.Skipped)
	assert.Equal(t, "Cat", f.repo.written[11])
	assert.Equal(t, 1, f.detector.calls)
}

func TestPreserveManualSkipsBeforeReadingFile(t *testing.T) {
	f := newFixture(t, &entity.Attachment{
		ID: 12, FilePath: "/u/missing.png", MimeType: "image/png",
		AltText: "Hand written", AltTextSource: entity.AltTextSourceManual,
	})

	deps := f.deps()
	deps.PreserveManual = true
	g, _, err := Activate(context.Background(), deps)
	require.NoError(t, err)

	out, err := g.OnImageAttached(context.Background(), 12)
	require.NoError(t, err)
	assert.Equal(t, SkipManualAltText, out.Skipped)
	assert.Zero(t, f.detector.calls)
}

func TestHandleMessage(t *testing.T) {
	f := newFixture(t, &entity.Attachment{ID: 42, FilePath: "/u/a.png", MimeType: "image/png"})
	require.NoError(t, afero.WriteFile(f.fs, "/u/a.png", pngHeader, 0o644))
	f.detector.labels = labels("cat", 0.95, "pet", 0.9, "whiskers", 0.7)
	f.activate(t)

	msg, err := messaging.NewMessage("m-1", messaging.TypeAddAttachment, messaging.AttachmentEvent{AttachmentID: 42})
	require.NoError(t, err)

	handler := f.sub.handlers[messaging.TypeAddAttachment]
	require.NotNil(t, handler)
	require.NoError(t, handler(context.Background(), msg))
	assert.Equal(t, "cat, pet", f.repo.written[42])

	bad := &messaging.Message{ID: "m-2", Type: messaging.TypeAddAttachment}
	assert.True(t, apperrors.IsCode(handler(context.Background(), bad), apperrors.CodeInvalidParam))
}

func TestDetectLabelsNilBecomesEmpty(t *testing.T) {
	g := New(&fakeDetector{}, newFakeAttachments(), nil, 0, false)
	got, err := g.DetectLabels(context.Background(), []byte("x"))
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.InDelta(t, DefaultThreshold, g.threshold, 1e-9)
}
