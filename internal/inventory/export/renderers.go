package export

import (
	"github.com/rentory/rentory-backend/internal/inventory/domain"
	"github.com/rentory/rentory-backend/internal/inventory/service"
)

// Renderers returns a renderer for every supported format.
func Renderers() map[domain.ExportFormat]service.ExportRenderer {
	return map[domain.ExportFormat]service.ExportRenderer{
		domain.ExportFormatXLSX: NewXLSXRenderer(),
		domain.ExportFormatCSV:  NewCSVRenderer(),
	}
}
