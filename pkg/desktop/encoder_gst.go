package desktop

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-gst/go-gst/gst"
	"github.com/go-gst/go-gst/gst/app"
)

var gstInitOnce sync.Once

// InitGStreamer initializes the GStreamer library. Safe to call multiple times.
func InitGStreamer() {
	gstInitOnce.Do(func() {
		gst.Init(nil)
	})
}

// gstElementAvailable reports whether an element factory exists, which
// newGstEncoderBackend uses to decide whether a hardware path is usable on
// this machine before committing to it.
func gstElementAvailable(name string) bool {
	InitGStreamer()
	return gst.Find(name) != nil
}

// encoderElement returns the GStreamer element name for an AccelPath.
func encoderElement(path AccelPath) string {
	return string(path)
}

// gstEncoderBackend drives one push (appsrc) / pull (appsink) GStreamer
// pipeline per encoder instance: appsrc ! videoconvert ! <path> ! h264parse
// config-interval=-1 ! appsink. config-interval=-1 makes h264parse
// re-inject SPS/PPS before every keyframe, which matters since clients can
// join a session mid-stream and need those to decode the first IDR frame.
type gstEncoderBackend struct {
	mu       sync.Mutex
	pipeline *gst.Pipeline
	src      *app.Source
	sink     *app.Sink
	path     AccelPath
	width    int
	height   int
	out      chan []byte
	lastBGRA []byte
}

func newGstEncoderBackend(path AccelPath, width, height int, _ func([]byte)) (encoderBackend, error) {
	element := encoderElement(path)
	if !gstElementAvailable(element) {
		return nil, fmt.Errorf("encoder: element %q not available", element)
	}

	pipelineStr := fmt.Sprintf(
		"appsrc name=src format=time is-live=true block=true ! "+
			"video/x-raw,format=BGRA,width=%d,height=%d,framerate=0/1 ! "+
			"videoconvert ! %s ! h264parse config-interval=-1 ! "+
			"video/x-h264,stream-format=byte-stream,alignment=au ! "+
			"appsink name=sink emit-signals=true max-buffers=4 drop=true sync=false",
		width, height, element,
	)

	pipeline, err := gst.NewPipelineFromString(pipelineStr)
	if err != nil {
		return nil, fmt.Errorf("parse pipeline for %s: %w", element, err)
	}

	srcElem, err := pipeline.GetElementByName("src")
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("get src: %w", err)
	}
	sinkElem, err := pipeline.GetElementByName("sink")
	if err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("get sink: %w", err)
	}

	g := &gstEncoderBackend{
		pipeline: pipeline,
		src:      app.SrcFromElement(srcElem),
		sink:     app.SinkFromElement(sinkElem),
		path:     path,
		width:    width,
		height:   height,
		out:      make(chan []byte, 4),
	}

	g.sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: g.onNewSample,
	})

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		pipeline.SetState(gst.StateNull)
		return nil, fmt.Errorf("start pipeline for %s: %w", element, err)
	}

	return g, nil
}

func (g *gstEncoderBackend) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}
	mapInfo := buffer.Map(gst.MapRead)
	if mapInfo == nil {
		return gst.FlowOK
	}
	defer buffer.Unmap()

	data := make([]byte, len(mapInfo.Bytes()))
	copy(data, mapInfo.Bytes())

	select {
	case g.out <- data:
	default:
	}
	return gst.FlowOK
}

// Encode pushes one raw BGRA frame into the appsrc and drains whatever
// access unit(s) the pipeline has produced by the time the push returns.
// The pipeline is asynchronous internally, so a single push does not
// guarantee a single output; callers see whatever is ready, which may be
// nothing for the first few calls while the encoder warms up.
func (g *gstEncoderBackend) Encode(p PixelProvider, ptsMillis int64) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	var bgra []byte
	switch p.Kind {
	case ProviderNone:
		// No new pixels this tick (e.g. an idle capture source between
		// damage events); re-push the last frame so the pipeline's
		// framerate=0/1 live clock still advances instead of stalling.
		if g.lastBGRA == nil {
			return nil, fmt.Errorf("encoder: %s backend: ProviderNone with no prior frame", g.path)
		}
		bgra = g.lastBGRA
	case ProviderBGRA:
		if p.Width != g.width || p.Height != g.height {
			return nil, fmt.Errorf("encoder: frame size %dx%d does not match backend %dx%d", p.Width, p.Height, g.width, g.height)
		}
		bgra = p.BGRA
		g.lastBGRA = p.BGRA
	default:
		return nil, fmt.Errorf("encoder: %s backend requires BGRA or None input, got %v", g.path, p.Kind)
	}

	buf := gst.NewBufferFromBytes(bgra)
	buf.SetPresentationTimestamp(gst.ClockTime(time.Duration(ptsMillis) * time.Millisecond))
	if ret := g.src.PushBuffer(buf); ret != gst.FlowOK {
		return nil, fmt.Errorf("encoder: push buffer: %v", ret)
	}

	select {
	case data := <-g.out:
		return data, nil
	default:
		return nil, nil
	}
}

func (g *gstEncoderBackend) Name() string { return string(g.path) }

func (g *gstEncoderBackend) IsHardware() bool {
	return g.path != PathSoftware
}

func (g *gstEncoderBackend) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pipeline != nil {
		g.src.EndStream()
		g.pipeline.SetState(gst.StateNull)
		g.pipeline = nil
	}
	return nil
}
