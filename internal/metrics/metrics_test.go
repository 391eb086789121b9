package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestPaginationCountersRecordAfterInit(t *testing.T) {
	Init()

	splitBefore := testutil.ToFloat64(pagesSplit)
	skippedBefore := testutil.ToFloat64(pdfsSkipped)
	failedBefore := testutil.ToFloat64(pdfsFailed)

	AddPagesSplit(4)
	IncPDFsSkipped()
	IncPDFsFailed()

	assert.Equal(t, splitBefore+4, testutil.ToFloat64(pagesSplit))
	assert.Equal(t, skippedBefore+1, testutil.ToFloat64(pdfsSkipped))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(pdfsFailed))
}
