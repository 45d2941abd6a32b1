package classify

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"urban-growth/rastertools"
)

// PredictMethod is the unary RPC served by the segmentation model. The
// request is the patch as little-endian float32 (height x width x channels),
// the response is one little-endian float32 probability per pixel.
const PredictMethod = "/segmentation.Segmenter/Predict"

const maxMsgSize = 10 * 1024 * 1024

// Remote classifies patches with a model served over gRPC.
type Remote struct {
	conn      *grpc.ClientConn
	timeout   time.Duration
	threshold float32
}

// DialRemote connects to a segmentation server. Pixels with probability
// above threshold are built-up.
func DialRemote(addr string, timeout time.Duration, threshold float32) (*Remote, error) {
	conn, err := grpc.NewClient(addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(
			grpc.MaxCallRecvMsgSize(maxMsgSize),
			grpc.MaxCallSendMsgSize(maxMsgSize),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gRPC server: %w", err)
	}
	return &Remote{conn: conn, timeout: timeout, threshold: threshold}, nil
}

func (r *Remote) Close() error {
	return r.conn.Close()
}

func (r *Remote) Classify(ctx context.Context, patch rastertools.Patch) ([]uint8, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	ctx = metadata.AppendToOutgoingContext(ctx,
		"tile-size", strconv.Itoa(patch.Size),
		"channels", strconv.Itoa(rastertools.Channels),
	)

	resp := new(wrapperspb.BytesValue)
	if err := r.conn.Invoke(ctx, PredictMethod, wrapperspb.Bytes(EncodeFloats(patch.Data)), resp); err != nil {
		return nil, fmt.Errorf("error calling %s: %w", PredictMethod, err)
	}

	probs, err := DecodeFloats(resp.GetValue())
	if err != nil {
		return nil, err
	}
	if len(probs) != patch.Size*patch.Size {
		return nil, fmt.Errorf("model returned %d probabilities for a %dx%d tile", len(probs), patch.Size, patch.Size)
	}
	out := make([]uint8, len(probs))
	for i, p := range probs {
		if p > r.threshold {
			out[i] = 1
		}
	}
	return out, nil
}

func EncodeFloats(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func DecodeFloats(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("payload of %d bytes is not a float32 array", len(buf))
	}
	values := make([]float32, len(buf)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return values, nil
}
