//go:build linux && cgo

package camera

/*
#cgo LDFLAGS: -lrt -lpthread

#include <stdlib.h>
#include <stdint.h>
#include <time.h>
#include <sys/mman.h>
#include <fcntl.h>
#include <unistd.h>
#include <string.h>
#include <semaphore.h>
#include <errno.h>

#define RING_BUFFER_SIZE 8
#define MAX_FRAME_SIZE (1920 * 1080 * 3)

typedef struct {
    uint64_t frame_number;
    struct timespec timestamp;
    int width;
    int height;
    int format;
    size_t data_size;
    uint8_t data[MAX_FRAME_SIZE];
} PoseFrame;

typedef struct {
    volatile uint32_t write_index;
    volatile uint32_t frame_interval_ms;
    uint8_t new_frame_sem[32];
    PoseFrame frames[RING_BUFFER_SIZE];
} PoseFrameBuffer;

static PoseFrameBuffer* open_pose_shm(const char* name) {
    int fd = shm_open(name, O_RDWR, 0666);
    if (fd == -1) {
        return NULL;
    }
    PoseFrameBuffer* shm = (PoseFrameBuffer*)mmap(
        NULL, sizeof(PoseFrameBuffer), PROT_READ | PROT_WRITE, MAP_SHARED, fd, 0);
    close(fd);
    if (shm == MAP_FAILED) {
        return NULL;
    }
    return shm;
}

// 0 on success, negative errno otherwise (-ETIMEDOUT on timeout)
static int wait_pose_frame(PoseFrameBuffer* shm, int timeout_ms) {
    struct timespec ts;
    if (clock_gettime(CLOCK_REALTIME, &ts) != 0) {
        return -errno;
    }
    ts.tv_sec += timeout_ms / 1000;
    ts.tv_nsec += (timeout_ms % 1000) * 1000000;
    if (ts.tv_nsec >= 1000000000) {
        ts.tv_sec += 1;
        ts.tv_nsec -= 1000000000;
    }
    if (sem_timedwait((sem_t*)&shm->new_frame_sem, &ts) == -1) {
        return -errno;
    }
    return 0;
}

static void close_pose_shm(PoseFrameBuffer* shm) {
    if (shm != NULL) {
        munmap((void*)shm, sizeof(PoseFrameBuffer));
    }
}

static uint32_t pose_write_index(PoseFrameBuffer* shm) {
    return shm->write_index;
}

static PoseFrame* pose_frame_at(PoseFrameBuffer* shm, uint32_t index) {
    return &shm->frames[index % RING_BUFFER_SIZE];
}
*/
import "C"
import (
	"errors"
	"fmt"
	"syscall"
	"time"
	"unsafe"

	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/internal/logger"
	"github.com/dj-oyu/rdk-x5_smart-pet-camera/pose-coach/pkg/types"
)

const (
	DefaultSHMName = "/pose_coach_frames"
	shmRingSize    = 8
	shmMaxFrame    = 1920 * 1080 * 3
)

// SHMSource reads frames published by the capture daemon into a POSIX
// shared memory ring. The writer posts a semaphore for every frame.
type SHMSource struct {
	Name        string
	OpenRetries int // Seconds to wait for the segment to appear

	shm *C.PoseFrameBuffer
}

// NewSHMSource returns a source bound to name (DefaultSHMName if empty)
func NewSHMSource(name string) *SHMSource {
	if name == "" {
		name = DefaultSHMName
	}
	return &SHMSource{Name: name, OpenRetries: 30}
}

// Start maps the shared memory segment, waiting for the capture daemon
func (s *SHMSource) Start() error {
	if s.shm != nil {
		return nil
	}
	cName := C.CString(s.Name)
	defer C.free(unsafe.Pointer(cName))

	retries := s.OpenRetries
	if retries < 1 {
		retries = 1
	}
	for i := 0; i < retries; i++ {
		s.shm = C.open_pose_shm(cName)
		if s.shm != nil {
			break
		}
		if i%5 == 0 {
			logger.Info("Camera", "Waiting for shared memory %s to appear... (%d/%d)", s.Name, i+1, retries)
		}
		if i+1 < retries {
			time.Sleep(time.Second)
		}
	}
	if s.shm == nil {
		return fmt.Errorf("failed to open shared memory: %s (timeout after %ds)", s.Name, retries)
	}
	logger.Info("Camera", "Successfully opened shared memory: %s", s.Name)
	return nil
}

// Stop unmaps the segment
func (s *SHMSource) Stop() error {
	if s.shm != nil {
		C.close_pose_shm(s.shm)
		s.shm = nil
	}
	return nil
}

// ReadFrame waits for the next frame notification and copies the newest
// frame out of the ring.
func (s *SHMSource) ReadFrame(timeout time.Duration) (*types.Frame, error) {
	if s.shm == nil {
		return nil, errors.New("shared memory not open")
	}

	ms := int(timeout.Milliseconds())
	if ms < 1 {
		ms = 1
	}
	if rc := int(C.wait_pose_frame(s.shm, C.int(ms))); rc != 0 {
		switch errno := syscall.Errno(-rc); errno {
		case syscall.ETIMEDOUT, syscall.EINTR:
			return nil, nil
		default:
			return nil, fmt.Errorf("semaphore wait failed: %w", errno)
		}
	}

	writeIndex := uint32(C.pose_write_index(s.shm))
	if writeIndex == 0 {
		return nil, nil
	}
	cf := C.pose_frame_at(s.shm, C.uint32_t(writeIndex-1))

	size := int(cf.data_size)
	if size <= 0 || size > shmMaxFrame {
		return nil, fmt.Errorf("invalid frame size %d at index %d", size, (writeIndex-1)%shmRingSize)
	}
	data := C.GoBytes(unsafe.Pointer(&cf.data[0]), C.int(size))

	return &types.Frame{
		Data:      data,
		Timestamp: time.Unix(int64(cf.timestamp.tv_sec), int64(cf.timestamp.tv_nsec)),
		Seq:       uint64(cf.frame_number),
		Width:     int(cf.width),
		Height:    int(cf.height),
		Format:    types.PixelFormat(cf.format),
	}, nil
}
