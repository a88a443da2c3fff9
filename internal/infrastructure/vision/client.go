// Package vision 封装 Google Cloud Vision 标签检测
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"

	"alt-text-ai-api/internal/domain/entity"
	"alt-text-ai-api/pkg/metrics"
)

// FeatureLabelDetection 标签检测特性
const FeatureLabelDetection = "LABEL_DETECTION"

var tracer = otel.Tracer("vision")

// Config 客户端配置
type Config struct {
	Endpoint   string
	MaxResults int64
	Timeout    time.Duration
}

// Client Vision API 客户端
type Client struct {
	svc        *visionapi.Service
	maxResults int64
	timeout    time.Duration
}

// NewClient 创建客户端，认证方式由 opts 决定
func NewClient(ctx context.Context, cfg Config, opts ...option.ClientOption) (*Client, error) {
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	svc, err := visionapi.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create vision service: %w", err)
	}

	return &Client{
		svc:        svc,
		maxResults: cfg.MaxResults,
		timeout:    cfg.Timeout,
	}, nil
}

// NewClientFromCredentials 使用服务账号 JSON 创建客户端
// 内容不做结构校验，直接交给 Google 认证库
func NewClientFromCredentials(ctx context.Context, cfg Config, credentialsJSON []byte) (*Client, error) {
	return NewClient(ctx, cfg,
		option.WithCredentialsJSON(credentialsJSON),
		option.WithScopes(visionapi.CloudVisionScope),
	)
}

// DetectLabels 对原始图片字节执行标签检测，保持 API 返回顺序
// API 未返回标签时得到空切片
func (c *Client) DetectLabels(ctx context.Context, image []byte) ([]entity.Label, error) {
	ctx, span := tracer.Start(ctx, "vision.DetectLabels",
		trace.WithAttributes(attribute.Int("image.bytes", len(image))))
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req := &visionapi.BatchAnnotateImagesRequest{
		Requests: []*visionapi.AnnotateImageRequest{{
			Image: &visionapi.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features: []*visionapi.Feature{{
				Type:       FeatureLabelDetection,
				MaxResults: c.maxResults,
			}},
		}},
	}

	start := time.Now()
	resp, err := c.svc.Images.Annotate(req).Context(ctx).Do()
	metrics.VisionCallDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.VisionCallTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "annotate failed")
		return nil, fmt.Errorf("annotate image: %w", err)
	}

	labels, err := labelsFrom(resp)
	if err != nil {
		metrics.VisionCallTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, "annotate returned an error status")
		return nil, err
	}

	metrics.VisionCallTotal.WithLabelValues("ok").Inc()
	metrics.VisionLabelsReturned.Observe(float64(len(labels)))
	span.SetAttributes(attribute.Int("labels.count", len(labels)))
	return labels, nil
}

// labelsFrom 从批量响应中提取第一张图片的标签
func labelsFrom(resp *visionapi.BatchAnnotateImagesResponse) ([]entity.Label, error) {
	labels := []entity.Label{}
	if resp == nil || len(resp.Responses) == 0 {
		return labels, nil
	}

	r := resp.Responses[0]
	if r.Error != nil && r.Error.Code != 0 {
		return nil, fmt.Errorf("vision api error %d: %s", r.Error.Code, r.Error.Message)
	}

	for _, a := range r.LabelAnnotations {
		if a == nil {
			continue
		}
		labels = append(labels, entity.NewLabel(a.Description, a.Score))
	}
	return labels, nil
}
