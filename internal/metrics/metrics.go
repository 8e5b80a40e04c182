package metrics

import (
	"expvar"
)

var (
	// DocumentsUploadedTotal counts accepted uploads
	DocumentsUploadedTotal = expvar.NewInt("documents_uploaded_total")

	// DocumentsDeletedTotal counts deleted documents
	DocumentsDeletedTotal = expvar.NewInt("documents_deleted_total")

	// ProcessingRequestsTotal counts processing attempts for known documents
	ProcessingRequestsTotal = expvar.NewInt("processing_requests_total")

	// ProcessingRecognizedTotal counts attempts answered by the recognizer
	ProcessingRecognizedTotal = expvar.NewInt("processing_recognized_total")

	// ProcessingDegradedTotal counts attempts answered with placeholder text
	ProcessingDegradedTotal = expvar.NewInt("processing_degraded_total")

	// ProcessingFailedTotal counts attempts that left the document in error
	ProcessingFailedTotal = expvar.NewInt("processing_failed_total")

	// OrphanFilesRemovedTotal counts upload files removed by the janitor
	OrphanFilesRemovedTotal = expvar.NewInt("orphan_files_removed_total")

	// APIErrorsTotal counts API responses with a 5xx status
	APIErrorsTotal = expvar.NewInt("api_errors_total")
)
