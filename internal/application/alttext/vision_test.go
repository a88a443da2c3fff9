package alttext

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"alt-text-ai-api/internal/domain/entity"
	"alt-text-ai-api/internal/infrastructure/messaging"
	"alt-text-ai-api/internal/infrastructure/vision"
	apperrors "alt-text-ai-api/pkg/errors"
)

// annotateServer 模拟 images:annotate，返回固定的标签并记录收到的图片内容
func annotateServer(t *testing.T, body string) (*httptest.Server, *[]string) {
	t.Helper()
	var received []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images:annotate", r.URL.Path)

		var req struct {
			Requests []struct {
				Image struct {
					Content string `json:"content"`
				} `json:"image"`
			} `json:"requests"`
		}
		if assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) && assert.Len(t, req.Requests, 1) {
			received = append(received, req.Requests[0].Image.Content)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &received
}

func TestAttachmentEventThroughVisionClient(t *testing.T) {
	srv, received := annotateServer(t, `{"responses":[{"labelAnnotations":[
		{"description":"Car","score":0.92},
		{"description":"Vehicle","score":0.85},
		{"description":"Road","score":0.4}
	]}]}`)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/uploads/2024/car.png", pngHeader, 0o644))
	repo := newFakeAttachments(&entity.Attachment{ID: 42, FilePath: "/uploads/2024/car.png", MimeType: "image/png"})
	sub := newFakeSubscriber()
	creds := &fakeCredentials{data: []byte(`{"type":"service_account","project_id":"p1"}`)}

	var factoryCreds []byte
	_, active, err := Activate(context.Background(), Deps{
		Credentials: creds,
		NewDetector: func(ctx context.Context, credJSON []byte) (LabelDetector, error) {
			factoryCreds = credJSON
			return vision.NewClient(ctx,
				vision.Config{Endpoint: srv.URL + "/", MaxResults: 10},
				option.WithoutAuthentication(),
				option.WithHTTPClient(srv.Client()),
			)
		},
		Attachments: repo,
		Subscriber:  sub,
		Fs:          fs,
	})
	require.NoError(t, err)
	require.True(t, active)
	assert.Equal(t, creds.data, factoryCreds)

	msg, err := messaging.NewMessage("m-42", messaging.TypeAddAttachment, messaging.AttachmentEvent{AttachmentID: 42})
	require.NoError(t, err)
	handler, ok := sub.handlers[messaging.TypeAddAttachment]
	require.True(t, ok)
	require.NoError(t, handler(context.Background(), msg))

	assert.Equal(t, "Car, Vehicle", repo.written[42])
	assert.Equal(t, []string{"Car", "Vehicle", "Road"}, repo.labels[42])
	require.Len(t, *received, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pngHeader), (*received)[0])
}

func TestVisionErrorStatusIsLabelDetectionFailure(t *testing.T) {
	srv, _ := annotateServer(t, `{"responses":[{"error":{"code":7,"message":"billing disabled"}}]}`)

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/u/a.png", pngHeader, 0o644))
	repo := newFakeAttachments(&entity.Attachment{ID: 43, FilePath: "/u/a.png", MimeType: "image/png", AltText: "keep"})

	client, err := vision.NewClient(context.Background(),
		vision.Config{Endpoint: srv.URL + "/"},
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)

	_, err = New(client, repo, fs, 0, false).OnImageAttached(context.Background(), 43)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeLabelDetectionFailed))
	assert.ErrorContains(t, err, "billing disabled")
	assert.Empty(t, repo.written)
}
