package config

import "time"

// Application constants for the anemia surveillance service
const (
	// Application Info
	AppName    = "AnemiaTrack"
	AppVersion = "1.2.0"

	// Export Settings
	ExportFileName  = "output.xlsx"
	ExportMIMEType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ExportSheetName = "Sheet1"
	ExportTableName = "AnemiaReport"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per minute
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultHTTPTimeout  = 30 * time.Second
	StorePingTimeout    = 5 * time.Second
	DefaultStoreTimeout = 15 * time.Second
)

// MonthNames is the fixed ordered list used to label monthly series
// positions on the read side.
var MonthNames = []string{
	"Jan", "Feb", "Mar", "Apr", "May", "Jun",
	"Jul", "Aug", "Sep", "Oct", "Nov", "Dec",
}
