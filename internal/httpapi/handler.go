package httpapi

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"eventdesk/internal/assets"
	"eventdesk/internal/attendance"
	"eventdesk/internal/auth"
	"eventdesk/internal/certificate"
	"eventdesk/internal/device"
	"eventdesk/internal/i18n"
	"eventdesk/internal/participant"
	"eventdesk/internal/program"
)

// Handler wires domain services to the gin router.
type Handler struct {
	participants *participant.Service
	attendance   *attendance.Service
	attExports   *attendance.Repository
	certificates *certificate.Service
	programs     *program.Repository
	devices      *device.Service
	feed         device.Feed
	admins       *auth.Admins
	assets       *assets.Client // nil if Cloudinary not configured
	tr           *i18n.Translator
	log          *zap.Logger

	jwtIssuer  string
	jwtKey     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// Deps bundles the handler's collaborators.
type Deps struct {
	Participants *participant.Service
	Attendance   *attendance.Service
	AttExports   *attendance.Repository
	Certificates *certificate.Service
	Programs     *program.Repository
	Devices      *device.Service
	Feed         device.Feed
	Admins       *auth.Admins
	Assets       *assets.Client
	Translator   *i18n.Translator
	Log          *zap.Logger

	JWTIssuer  string
	JWTKey     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// New creates a handler.
func New(d Deps) *Handler {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		participants: d.Participants,
		attendance:   d.Attendance,
		attExports:   d.AttExports,
		certificates: d.Certificates,
		programs:     d.Programs,
		devices:      d.Devices,
		feed:         d.Feed,
		admins:       d.Admins,
		assets:       d.Assets,
		tr:           d.Translator,
		log:          log,
		jwtIssuer:    d.JWTIssuer,
		jwtKey:       d.JWTKey,
		accessTTL:    d.AccessTTL,
		refreshTTL:   d.RefreshTTL,
	}
}

// Routes registers the v1 API. Scan stations work unauthenticated; everything
// that mutates the registry or reads exports sits behind the admin guard.
func (h *Handler) Routes(r *gin.Engine) {
	v1 := r.Group("/v1")

	v1.POST("/auth/login", h.Login)
	v1.POST("/auth/refresh", h.Refresh)
	v1.GET("/certificates/verify/:number", h.VerifyCertificate)
	v1.POST("/attendance/scan", h.Scan)
	v1.POST("/devices/heartbeat", h.Heartbeat)

	admin := v1.Group("", auth.AdminAuth(h.jwtKey, h.jwtIssuer))

	admin.POST("/participants", h.CreateParticipant)
	admin.GET("/participants", h.ListParticipants)
	admin.GET("/participants/:id", h.GetParticipant)
	admin.PUT("/participants/:id", h.UpdateParticipant)
	admin.GET("/participants/:id/qr", h.ParticipantQR)
	admin.POST("/participants/:id/resend-qr", h.ResendQR)

	// Bulk import lives outside /participants: gin's router rejects a static
	// segment next to the :id wildcard.
	admin.POST("/imports/participants", h.ImportParticipants)

	admin.GET("/attendance", h.ListAttendance)
	admin.GET("/attendance/export.csv", h.ExportAttendanceCSV)
	admin.GET("/attendance/export.xlsx", h.ExportAttendanceXLSX)

	admin.POST("/certificates", h.IssueCertificate)
	admin.POST("/certificates/bulk", h.IssueCertificatesBulk)
	admin.GET("/certificates", h.ListCertificates)

	admin.POST("/programs", h.CreateProgram)
	admin.GET("/programs", h.ListPrograms)
	admin.PUT("/programs/:id", h.UpdateProgram)

	admin.GET("/devices", h.ListDevices)
	admin.GET("/devices/stream", h.StreamDevices)

	admin.POST("/assets/upload", h.UploadAsset)
}

// locale extracts the preferred language from Accept-Language, first tag only.
func locale(c *gin.Context) string {
	al := c.GetHeader("Accept-Language")
	if al == "" {
		return ""
	}
	tag := strings.TrimSpace(strings.SplitN(al, ",", 2)[0])
	if i := strings.IndexByte(tag, ';'); i >= 0 {
		tag = tag[:i]
	}
	return tag
}

// fail renders a localized error body.
func (h *Handler) fail(c *gin.Context, status int, key string) {
	c.JSON(status, gin.H{"error": h.tr.T(locale(c), key, nil)})
}
