//go:build linux && cgo

package desktop

/*
#cgo LDFLAGS: -lX11 -lXext -lXrandr
#include <X11/Xlib.h>
#include <X11/extensions/XShm.h>
#include <X11/extensions/Xrandr.h>
#include <sys/ipc.h>
#include <sys/shm.h>
#include <stdlib.h>
#include <string.h>

typedef struct {
	Display *display;
	Window root;
	int screen;
	int width, height;
	int useShm;
	XShmSegmentInfo shmInfo;
	XImage *shmImage;
} x11Ctx;

static x11Ctx g_x11 = {0};

static int x11_open(const char *displayName) {
	if (g_x11.display != NULL) {
		return 0;
	}
	g_x11.display = XOpenDisplay(displayName != NULL && displayName[0] != '\0' ? displayName : NULL);
	if (g_x11.display == NULL) {
		return 1;
	}
	g_x11.screen = DefaultScreen(g_x11.display);
	g_x11.root = RootWindow(g_x11.display, g_x11.screen);
	g_x11.width = DisplayWidth(g_x11.display, g_x11.screen);
	g_x11.height = DisplayHeight(g_x11.display, g_x11.screen);

	int major, minor;
	Bool pixmaps;
	if (XShmQueryVersion(g_x11.display, &major, &minor, &pixmaps)) {
		g_x11.shmImage = XShmCreateImage(g_x11.display, DefaultVisual(g_x11.display, g_x11.screen),
			DefaultDepth(g_x11.display, g_x11.screen), ZPixmap, NULL, &g_x11.shmInfo,
			g_x11.width, g_x11.height);
		if (g_x11.shmImage != NULL) {
			g_x11.shmInfo.shmid = shmget(IPC_PRIVATE, g_x11.shmImage->bytes_per_line * g_x11.shmImage->height, IPC_CREAT | 0600);
			if (g_x11.shmInfo.shmid >= 0) {
				g_x11.shmInfo.shmaddr = g_x11.shmImage->data = shmat(g_x11.shmInfo.shmid, 0, 0);
				g_x11.shmInfo.readOnly = False;
				if (XShmAttach(g_x11.display, &g_x11.shmInfo)) {
					g_x11.useShm = 1;
					return 0;
				}
			}
			XDestroyImage(g_x11.shmImage);
			g_x11.shmImage = NULL;
		}
	}
	g_x11.useShm = 0;
	return 0;
}

static void x11_close(void) {
	if (g_x11.shmImage != NULL) {
		XShmDetach(g_x11.display, &g_x11.shmInfo);
		shmdt(g_x11.shmInfo.shmaddr);
		shmctl(g_x11.shmInfo.shmid, IPC_RMID, 0);
		XDestroyImage(g_x11.shmImage);
		g_x11.shmImage = NULL;
	}
	if (g_x11.display != NULL) {
		XCloseDisplay(g_x11.display);
	}
	memset(&g_x11, 0, sizeof(g_x11));
}

// x11_capture fills dst (caller-allocated, width*height*4 bytes) with BGR0
// pixels read from the root window.
static int x11_capture(unsigned char *dst, int bufLen) {
	if (g_x11.display == NULL) {
		return 1;
	}
	XImage *img;
	if (g_x11.useShm) {
		if (!XShmGetImage(g_x11.display, g_x11.root, g_x11.shmImage, 0, 0, AllPlanes)) {
			return 2;
		}
		img = g_x11.shmImage;
	} else {
		img = XGetImage(g_x11.display, g_x11.root, 0, 0, g_x11.width, g_x11.height, AllPlanes, ZPixmap);
		if (img == NULL) {
			return 3;
		}
	}
	int need = g_x11.width * g_x11.height * 4;
	if (bufLen < need) {
		if (!g_x11.useShm) XDestroyImage(img);
		return 4;
	}
	// XShm/XGetImage on a TrueColor 24/32-bit visual already returns
	// packed 32-bit little-endian BGRX on the vast majority of X servers;
	// copy the raw buffer directly rather than pixel-by-pixel XGetPixel,
	// which dominates capture latency at desktop resolutions.
	memcpy(dst, img->data, need);
	if (!g_x11.useShm) {
		XDestroyImage(img);
	}
	return 0;
}

static void x11_bounds(int *w, int *h) {
	*w = g_x11.width;
	*h = g_x11.height;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

var x11Once sync.Once
var x11OpenErr error

func x11EnsureOpen(display string) error {
	x11Once.Do(func() {
		cDisplay := C.CString(display)
		defer C.free(unsafe.Pointer(cDisplay))
		if rc := C.x11_open(cDisplay); rc != 0 {
			x11OpenErr = fmt.Errorf("open X11 display %q: %w", display, ErrDisplayNotFound)
		}
	})
	return x11OpenErr
}

type x11RootCapturable struct {
	cfg CaptureConfig
}

func newX11Capturables(cfg CaptureConfig) ([]Capturable, error) {
	if err := x11EnsureOpen(cfg.Display); err != nil {
		return nil, err
	}
	return []Capturable{x11RootCapturable{cfg: cfg}}, nil
}

func (x x11RootCapturable) Name() string { return "X11 Root Window" }

func (x x11RootCapturable) Geometry() (Geometry, error) {
	var w, h C.int
	C.x11_bounds(&w, &h)
	return Geometry{
		Kind: GeometryRelative,
		RelX: 0, RelY: 0, RelW: 1, RelH: 1,
		ScreenW: int(w), ScreenH: int(h),
	}, nil
}

func (x x11RootCapturable) BeforeInput() error { return nil }

func (x x11RootCapturable) Recorder(_ bool) (Recorder, error) {
	if err := x11EnsureOpen(x.cfg.Display); err != nil {
		return nil, err
	}
	var w, h C.int
	C.x11_bounds(&w, &h)
	return &x11Recorder{buf: make([]byte, int(w)*int(h)*4), width: int(w), height: int(h)}, nil
}

func (x x11RootCapturable) Clone() Capturable { return x }

type x11Recorder struct {
	mu            sync.Mutex
	buf           []byte
	width, height int
}

func (r *x11Recorder) Capture() (PixelFrame, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rc := C.x11_capture((*C.uchar)(unsafe.Pointer(&r.buf[0])), C.int(len(r.buf)))
	if rc != 0 {
		return PixelFrame{}, fmt.Errorf("x11 capture failed (code %d): %w", int(rc), ErrNotSupported)
	}
	return PixelFrame{Format: FormatBGR0, Width: r.width, Height: r.height, Pix: r.buf}, nil
}

func (r *x11Recorder) Close() error { return nil }
