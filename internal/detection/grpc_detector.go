package detection

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	pb "actionpipe/api/proto/inference/v1"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"actionpipe/internal/pipeline"
)

// GRPCDetector performs object detection through the inference
// service. One connection is shared by every stream worker; the
// service batches internally.
type GRPCDetector struct {
	endpoint      string
	conn          *grpc.ClientConn
	client        pb.InferenceServiceClient
	confThreshold float32
	timeout       time.Duration

	healthy    bool
	healthMu   sync.RWMutex
	lastHealth time.Time

	preprocessor *Preprocessor
}

// GRPCDetectorConfig holds configuration for the gRPC detector
type GRPCDetectorConfig struct {
	Endpoint      string
	ConfThreshold float32
	Timeout       time.Duration // per-call deadline, default 2s
	InputSize     int           // model input edge in pixels, default 640
}

// NewGRPCDetector connects to the inference service.
func NewGRPCDetector(config GRPCDetectorConfig) (*GRPCDetector, error) {
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Second
	}

	gd := &GRPCDetector{
		endpoint:      config.Endpoint,
		confThreshold: config.ConfThreshold,
		timeout:       config.Timeout,
		preprocessor:  NewPreprocessor(config.InputSize),
	}

	if err := gd.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to inference service: %w", err)
	}

	return gd, nil
}

// connect establishes the gRPC connection
func (gd *GRPCDetector) connect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Configure keepalive to detect dead connections quickly
	kacp := keepalive.ClientParameters{
		Time:                10 * time.Second,
		Timeout:             5 * time.Second,
		PermitWithoutStream: true,
	}

	conn, err := grpc.DialContext(ctx, gd.endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(kacp),
		grpc.WithBlock(),
	)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}

	gd.conn = conn
	gd.client = pb.NewInferenceServiceClient(conn)

	log.Printf("[GRPCDetector] Connected to %s", gd.endpoint)
	return nil
}

// Name identifies the detector backend.
func (gd *GRPCDetector) Name() string {
	return "grpc-inference"
}

// IsHealthy checks if the inference service is available. Health
// results are cached for 30 seconds.
func (gd *GRPCDetector) IsHealthy() bool {
	gd.healthMu.RLock()
	if time.Since(gd.lastHealth) < 30*time.Second && gd.healthy {
		gd.healthMu.RUnlock()
		return true
	}
	gd.healthMu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := gd.client.HealthCheck(ctx, &pb.HealthRequest{})
	if err != nil {
		log.Printf("[GRPCDetector] Health check failed: %v", err)
		gd.healthMu.Lock()
		gd.healthy = false
		gd.healthMu.Unlock()
		return false
	}

	gd.healthMu.Lock()
	gd.healthy = resp.Status == "healthy" && resp.ModelLoaded
	gd.lastHealth = time.Now()
	gd.healthMu.Unlock()

	return gd.healthy
}

// Preprocess resizes the frame to the model input size and re-encodes
// it for the wire.
func (gd *GRPCDetector) Preprocess(frame *pipeline.FrameData) ([]byte, error) {
	return gd.preprocessor.Letterbox(frame)
}

// Detect runs single-frame object detection and returns boxes in the
// coordinate space of the original frame.
func (gd *GRPCDetector) Detect(ctx context.Context, input []byte, dims pipeline.Size) ([]pipeline.Box, error) {
	ctx, cancel := context.WithTimeout(ctx, gd.timeout)
	defer cancel()

	resp, err := gd.client.DetectObjects(ctx, &pb.DetectRequest{
		JpegData:      input,
		Width:         int32(dims.Width),
		Height:        int32(dims.Height),
		ConfThreshold: gd.confThreshold,
	})
	if err != nil {
		return nil, fmt.Errorf("detect objects: %w", err)
	}

	return convertDetections(resp.Detections), nil
}

// convertDetections converts gRPC detections to internal boxes
func convertDetections(detections []*pb.Detection) []pipeline.Box {
	boxes := make([]pipeline.Box, 0, len(detections))
	for _, det := range detections {
		if det.Bbox == nil {
			continue
		}
		boxes = append(boxes, pipeline.Box{
			X1: det.Bbox.X1,
			Y1: det.Bbox.Y1,
			X2: det.Bbox.X2,
			Y2: det.Bbox.Y2,
		})
	}
	return boxes
}

// Close shuts down the gRPC connection
func (gd *GRPCDetector) Close() error {
	if gd.conn != nil {
		return gd.conn.Close()
	}
	return nil
}

var _ pipeline.Detector = (*GRPCDetector)(nil)
