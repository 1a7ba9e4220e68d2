package engine

import (
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/christerso/gpurt/pkg/artifact"
)

// KernelKey identifies a compiled pipeline: the source artifact plus
// the exact specialization bytes it was built with.
// Equality is structural over both fields, which Go gives us for free
// as long as SpecBytes is a comparable type — hence string, not []byte.
type KernelKey struct {
	ArtifactID uintptr
	SpecBytes  string
}

// BuildFunc produces a pipeline for a cache miss. It returns the
// (possibly specialized) artifact alongside the pipeline handle so
// callers can recover dispatch metadata (slice_descs, push_consts_range)
// without re-parsing.
type BuildFunc func() (PipelineHandle, *artifact.Desc, error)

// KernelCache memoizes compiled pipelines keyed by KernelKey, with
// at-most-one concurrent build per key. This is
// deliberately NOT the whole-cache double-checked-lock pattern seen in
// pipeline_cache_core.go from the wider retrieval pack: that pattern
// serializes unrelated keys behind one RWMutex around the build call,
// which would make two independently-keyed dispatches block each
// other. Instead each key gets its own in-flight slot: the first caller
// for a key builds and broadcasts the result to everyone who joined
// while the build was running; unrelated keys never contend.
type KernelCache struct {
	mu      sync.Mutex
	entries map[KernelKey]*cacheEntry
}

type cacheEntry struct {
	done     chan struct{}
	pipeline PipelineHandle
	art      *artifact.Desc
	err      error
}

func newKernelCache() *KernelCache {
	return &KernelCache{entries: make(map[KernelKey]*cacheEntry)}
}

// Cached returns the pipeline for key, building it via build on a miss.
// Concurrent callers for the same key share one build's outcome;
// concurrent callers for different keys never block each other. A
// failed build does not populate the cache: the next caller (whether
// it was waiting on the failed build or arrives later) retries it.
func (c *KernelCache) Cached(key KernelKey, build BuildFunc) (PipelineHandle, *artifact.Desc, error) {
	for {
		c.mu.Lock()
		entry, found := c.entries[key]
		if found {
			c.mu.Unlock()
			<-entry.done
			if entry.err != nil {
				continue // the builder removed this entry; retry as a fresh miss
			}
			return entry.pipeline, entry.art, nil
		}

		entry = &cacheEntry{done: make(chan struct{})}
		c.entries[key] = entry
		c.mu.Unlock()

		logrus.WithField("artifact_id", key.ArtifactID).Debug("gpurt: pipeline cache miss, building")
		entry.pipeline, entry.art, entry.err = build()
		if entry.err != nil {
			logrus.WithError(entry.err).WithField("artifact_id", key.ArtifactID).Warn("gpurt: pipeline build failed")
			c.mu.Lock()
			if c.entries[key] == entry {
				delete(c.entries, key)
			}
			c.mu.Unlock()
		}
		close(entry.done)
		if entry.err != nil {
			return nil, nil, entry.err
		}
		return entry.pipeline, entry.art, nil
	}
}

// Pipeline returns the cached pipeline for key, compiling makeArtifact's
// result through the backend on a miss. makeArtifact performs
// specialization (pkg/spirv) when needed; Pipeline only handles the
// compile-and-cache half of the build.
func (e *Engine) Pipeline(key KernelKey, makeArtifact func() (*artifact.Desc, error)) (PipelineHandle, *artifact.Desc, error) {
	if err := e.checkLive(); err != nil {
		return nil, nil, err
	}
	pipeline, art, err := e.cache.Cached(key, func() (PipelineHandle, *artifact.Desc, error) {
		art, err := makeArtifact()
		if err != nil {
			return nil, nil, err
		}
		p, err := e.backend.BuildPipeline(e.dev, art)
		if err != nil {
			return nil, nil, err
		}
		return p, art, nil
	})
	if err != nil {
		return nil, nil, e.wrap(err)
	}
	return pipeline, art, nil
}

// Dispatch submits a single compute dispatch against pipeline with the
// given bindings, push constant bytes, and workgroup counts, returning the submission id callers should pass to
// DeviceBuffer.RecordRead/RecordWrite for the slices this dispatch
// touched.
func (e *Engine) Dispatch(pipeline PipelineHandle, bindings []BufferHandle, pushConsts []byte, groups [3]uint32) (SubmissionID, error) {
	if err := e.checkLive(); err != nil {
		return 0, err
	}
	sub, err := e.backend.Dispatch(e.dev, pipeline, bindings, pushConsts, groups)
	if err != nil {
		return 0, e.wrap(err)
	}
	return sub, nil
}

// Len reports the number of currently cached (successfully built)
// entries — in-flight builds count too, since they occupy a slot until
// they resolve. Exposed for tests.
func (c *KernelCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
