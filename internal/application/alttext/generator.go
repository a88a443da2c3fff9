package alttext

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/afero"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"alt-text-ai-api/internal/domain/entity"
	"alt-text-ai-api/internal/domain/repository"
	"alt-text-ai-api/internal/infrastructure/messaging"
	apperrors "alt-text-ai-api/pkg/errors"
	"alt-text-ai-api/pkg/logger"
	"alt-text-ai-api/pkg/metrics"
)

var tracer = otel.Tracer("alttext")

// 跳过原因
const (
	SkipNotImage      = "not_image"
	SkipManualAltText = "manual_alt_text"
)

// LabelDetector 标签检测能力
type LabelDetector interface {
	DetectLabels(ctx context.Context, image []byte) ([]entity.Label, error)
}

// DetectorFactory 由凭证 JSON 构造检测器
type DetectorFactory func(ctx context.Context, credentialsJSON []byte) (LabelDetector, error)

// CredentialSource 凭证文件来源
type CredentialSource interface {
	Exists() bool
	Read() ([]byte, error)
}

// Subscriber 事件订阅方
type Subscriber interface {
	RegisterHandler(msgType string, handler messaging.MessageHandler)
	UnregisterHandler(msgType string)
}

// Deps 生成器依赖
type Deps struct {
	Credentials CredentialSource
	NewDetector DetectorFactory
	Attachments repository.AttachmentRepository
	Subscriber  Subscriber
	// Fs 读取附件文件，为 nil 时使用操作系统文件系统
	Fs afero.Fs
	// Threshold 为 0 时使用 DefaultThreshold
	Threshold      float64
	PreserveManual bool
}

// Outcome 单次处理结果
type Outcome struct {
	AttachmentID uint64
	AltText      string
	Labels       []entity.Label
	// Skipped 非空表示未写入，值为跳过原因
	Skipped string
}

// Generator alt text 生成器，仅在凭证存在时被激活
type Generator struct {
	detector       LabelDetector
	attachments    repository.AttachmentRepository
	fs             afero.Fs
	threshold      float64
	preserveManual bool
}

// Activate 检查凭证文件并激活生成器
// 凭证不存在时返回 (nil, false, nil)：不注册处理器、不构造客户端、不访问网络
func Activate(ctx context.Context, deps Deps) (*Generator, bool, error) {
	if !deps.Credentials.Exists() {
		logger.Warn(ctx, "credential file not found, alt text generator stays inactive")
		metrics.GeneratorActive.Set(0)
		return nil, false, nil
	}

	credJSON, err := deps.Credentials.Read()
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.CodeCredentialNotFound, "failed to read credential file")
	}

	detector, err := deps.NewDetector(ctx, credJSON)
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.CodeVisionProviderError, "failed to create label detector")
	}

	g := New(detector, deps.Attachments, deps.Fs, deps.Threshold, deps.PreserveManual)
	if deps.Subscriber != nil {
		deps.Subscriber.RegisterHandler(messaging.TypeAddAttachment, g.HandleMessage)
	}

	metrics.GeneratorActive.Set(1)
	logger.Info(ctx, "alt text generator activated", "threshold", g.threshold)
	return g, true, nil
}

// Deactivate 取消事件订阅
func Deactivate(ctx context.Context, sub Subscriber) {
	if sub != nil {
		sub.UnregisterHandler(messaging.TypeAddAttachment)
	}
	metrics.GeneratorActive.Set(0)
	logger.Info(ctx, "alt text generator deactivated")
}

// New 直接构造生成器
func New(detector LabelDetector, attachments repository.AttachmentRepository, fs afero.Fs, threshold float64, preserveManual bool) *Generator {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Generator{
		detector:       detector,
		attachments:    attachments,
		fs:             fs,
		threshold:      threshold,
		preserveManual: preserveManual,
	}
}

// HandleMessage 处理 add_attachment 消息
func (g *Generator) HandleMessage(ctx context.Context, msg *messaging.Message) error {
	ev, err := messaging.DecodeAttachmentEvent(msg)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInvalidParam, "invalid attachment event")
	}
	_, err = g.OnImageAttached(ctx, ev.AttachmentID)
	return err
}

// OnImageAttached 为新附加的图片生成并写入 alt text
func (g *Generator) OnImageAttached(ctx context.Context, id uint64) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "alttext.OnImageAttached",
		trace.WithAttributes(attribute.Int64("attachment.id", int64(id))))
	defer span.End()
	ctx = logger.WithContext(ctx, logger.AttachmentIDKey, id)

	outcome, err := g.generate(ctx, id)
	switch {
	case err != nil:
		span.RecordError(err)
		metrics.AltTextTotal.WithLabelValues("failed").Inc()
	case outcome.Skipped != "":
		span.SetAttributes(attribute.String("alttext.skipped", outcome.Skipped))
		metrics.AltTextTotal.WithLabelValues("skipped_" + outcome.Skipped).Inc()
		logger.Debug(ctx, "alt text generation skipped", "reason", outcome.Skipped)
	default:
		metrics.AltTextTotal.WithLabelValues("written").Inc()
		logger.Info(ctx, "alt text written", "alt_text", outcome.AltText, "labels", len(outcome.Labels))
	}
	return outcome, err
}

func (g *Generator) generate(ctx context.Context, id uint64) (*Outcome, error) {
	att, err := g.attachments.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load attachment")
	}
	if att == nil {
		return nil, apperrors.New(apperrors.CodeAttachmentNotFound, "attachment not found")
	}

	outcome := &Outcome{AttachmentID: id}

	isImage, known := declaredImage(att)
	if known && !isImage {
		outcome.Skipped = SkipNotImage
		return outcome, nil
	}
	// 人工 alt text 受保护时不读文件，也不调用 Vision
	if g.preserveManual && att.HasManualAltText() {
		outcome.Skipped = SkipManualAltText
		return outcome, nil
	}

	content, err := g.readFile(att.FilePath)
	if err != nil {
		return nil, err
	}

	if !known {
		mimeType, ok := sniffImage(content)
		if !ok {
			logger.Debug(ctx, "content is not an image", "detected", mimeType)
			outcome.Skipped = SkipNotImage
			return outcome, nil
		}
	}
	if w, h, ok := dimensions(content); ok {
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int("image.width", w), attribute.Int("image.height", h))
	}

	labels, err := g.DetectLabels(ctx, content)
	if err != nil {
		return nil, err
	}
	outcome.Labels = labels
	outcome.AltText = BuildAltTextWithThreshold(labels, g.threshold)

	if err := g.attachments.UpdateAltText(ctx, id, outcome.AltText, entity.Descriptions(labels)); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeAltTextWriteFailed, "failed to write alt text")
	}
	return outcome, nil
}

// DetectLabels 调用标签检测，失败不重试
func (g *Generator) DetectLabels(ctx context.Context, image []byte) ([]entity.Label, error) {
	labels, err := g.detector.DetectLabels(ctx, image)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLabelDetectionFailed, "label detection failed")
	}
	if labels == nil {
		labels = []entity.Label{}
	}
	return labels, nil
}

func (g *Generator) readFile(path string) ([]byte, error) {
	content, err := afero.ReadFile(g.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.Wrap(err, apperrors.CodeImageFileNotFound, "image file not found").WithDetail(path)
		}
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "failed to read image file")
	}
	return content, nil
}
