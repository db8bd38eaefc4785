package metrics

import "github.com/prometheus/client_golang/prometheus"

type UploadMetrics struct {
	files *prometheus.CounterVec
	bytes prometheus.Counter
}

// NewUploadMetrics registers image upload metrics on the provided registerer.
func NewUploadMetrics(reg prometheus.Registerer) *UploadMetrics {
	if reg == nil {
		return &UploadMetrics{}
	}
	files := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "image_upload_files_total",
		Help: "Image files processed by outcome.",
	}, []string{"outcome"})
	bytes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "image_upload_bytes_total",
		Help: "Bytes written to object storage.",
	})
	reg.MustRegister(files, bytes)
	return &UploadMetrics{files: files, bytes: bytes}
}

func (u *UploadMetrics) IncUploaded(size int64) {
	if u == nil || u.files == nil {
		return
	}
	u.files.WithLabelValues("uploaded").Inc()
	u.bytes.Add(float64(size))
}

func (u *UploadMetrics) IncRejected() {
	if u == nil || u.files == nil {
		return
	}
	u.files.WithLabelValues("rejected").Inc()
}

func (u *UploadMetrics) IncFailed() {
	if u == nil || u.files == nil {
		return
	}
	u.files.WithLabelValues("failed").Inc()
}
