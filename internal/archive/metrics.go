package archive

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	archiveEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chmura_archive_entries_total",
		Help: "Archive entries written, by status (ok = file streamed, error = diagnostic entry)",
	}, []string{"status"})

	archiveBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chmura_archive_bytes_total",
		Help: "Total uncompressed bytes streamed into archives",
	})
)
