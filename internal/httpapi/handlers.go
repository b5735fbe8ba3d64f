package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/isnaaziz/working-permit-dc-sub000/internal/access"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/approval"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/auth"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/permit"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/rbac"
	"github.com/isnaaziz/working-permit-dc-sub000/internal/reporting"

	"github.com/gin-gonic/gin"
)

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.

type Handlers struct {
	Auth      *auth.Manager
	Permits   *permit.Service
	Approvals *approval.Ledger
	Gate      *access.Service
	Reports   *reporting.Service
}

// --- Auth ---

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// Login issues a JWT token pair.
//
// NOTE: This is a skeleton-only endpoint. Real systems must validate credentials.
func (h Handlers) Login(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.Role == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "user_id, role required"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), req.UserID, req.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"access_token": pair.AccessToken, "refresh_token": pair.RefreshToken})
}

// --- Permits ---

type submitPermitRequest struct {
	PICID           string    `json:"pic_id"`
	VisitPurpose    string    `json:"visit_purpose"`
	VisitType       string    `json:"visit_type"`
	DataCenter      string    `json:"data_center"`
	ScheduledStart  time.Time `json:"scheduled_start"`
	ScheduledEnd    time.Time `json:"scheduled_end"`
	EquipmentList   []string  `json:"equipment_list,omitempty"`
	WorkOrderDocRef string    `json:"work_order_doc_ref,omitempty"`

	// VisitorID is honored only for admin submissions on a visitor's behalf.
	VisitorID string `json:"visitor_id,omitempty"`
}

func (h Handlers) SubmitPermit(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}

	var req submitPermitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	visitorID := userID
	if rbac.IsAdmin(role) && req.VisitorID != "" {
		visitorID = req.VisitorID
	}

	p, err := h.Permits.Submit(c.Request.Context(), permit.SubmitRequest{
		VisitorID:       visitorID,
		PICID:           req.PICID,
		VisitPurpose:    req.VisitPurpose,
		VisitType:       permit.VisitType(req.VisitType),
		DataCenter:      req.DataCenter,
		ScheduledStart:  req.ScheduledStart,
		ScheduledEnd:    req.ScheduledEnd,
		EquipmentList:   req.EquipmentList,
		WorkOrderDocRef: req.WorkOrderDocRef,
	})
	if err != nil {
		abortPermitErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, redact(p, userID, role))
}

func (h Handlers) GetPermit(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}
	p, err := h.Permits.Get(c.Request.Context(), c.Param("permit_id"))
	if err != nil {
		abortPermitErr(c, err)
		return
	}
	c.JSON(http.StatusOK, redact(p, userID, role))
}

func (h Handlers) ListPermits(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}

	f := permit.Filter{
		Status:     permit.Status(c.Query("status")),
		DataCenter: c.Query("data_center"),
	}
	// Visitors see only their own permits; PICs default to their queue.
	switch role {
	case rbac.RoleVisitor:
		f.VisitorID = userID
	case rbac.RolePIC:
		f.PICID = userID
	}

	list, err := h.Permits.List(c.Request.Context(), f)
	if err != nil {
		abortPermitErr(c, err)
		return
	}
	out := make([]permit.Permit, 0, len(list))
	for _, p := range list {
		out = append(out, redact(p, userID, role))
	}
	c.JSON(http.StatusOK, gin.H{"permits": out})
}

type reviewRequest struct {
	Approved bool   `json:"approved"`
	Comments string `json:"comments,omitempty"`
}

func (h Handlers) PICReview(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := h.Permits.PICReview(c.Request.Context(), c.Param("permit_id"), userID, req.Approved, req.Comments)
	if err != nil {
		abortPermitErr(c, err)
		return
	}
	c.JSON(http.StatusOK, redact(p, userID, role))
}

func (h Handlers) ManagerReview(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := h.Permits.ManagerApprove(c.Request.Context(), c.Param("permit_id"), userID, req.Approved, req.Comments)
	if err != nil {
		abortPermitErr(c, err)
		return
	}
	c.JSON(http.StatusOK, redact(p, userID, role))
}

type cancelRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (h Handlers) CancelPermit(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := h.Permits.Cancel(c.Request.Context(), c.Param("permit_id"), userID, rbac.IsPrivileged(role), req.Reason)
	if err != nil {
		abortPermitErr(c, err)
		return
	}
	c.JSON(http.StatusOK, redact(p, userID, role))
}

func (h Handlers) RegenerateCredential(c *gin.Context) {
	userID, role, ok := identity(c)
	if !ok {
		return
	}
	p, err := h.Permits.RegenerateCredential(c.Request.Context(), c.Param("permit_id"), userID)
	if err != nil {
		abortPermitErr(c, err)
		return
	}
	c.JSON(http.StatusOK, redact(p, userID, role))
}

func (h Handlers) ListApprovals(c *gin.Context) {
	records, err := h.Approvals.ListFor(c.Request.Context(), c.Param("permit_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"approvals": records})
}

func (h Handlers) ListAccessLog(c *gin.Context) {
	entries, err := h.Gate.History(c.Request.Context(), c.Param("permit_id"))
	if err != nil {
		abortPermitErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// --- Gate ---

type credentialRequest struct {
	QRCodeData string `json:"qr_code_data"`
	OTPCode    string `json:"otp_code"`
	Location   string `json:"location"`
}

func (h Handlers) VerifyCredential(c *gin.Context) {
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	summary, err := h.Gate.Verify(c.Request.Context(), req.QRCodeData, req.OTPCode)
	if err != nil {
		if denied(c, err) {
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "verify failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true, "permit": summary})
}

func (h Handlers) CheckIn(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	var req credentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Location == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "location required"})
		return
	}
	p, err := h.Gate.CheckIn(c.Request.Context(), req.QRCodeData, req.OTPCode, req.Location, userID)
	if err != nil {
		if denied(c, err) {
			return
		}
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "check-in failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"granted":       true,
		"permit_id":     p.ID,
		"permit_number": p.PermitNumber,
		"checked_in_at": p.ActualCheckInTime,
	})
}

type checkOutRequest struct {
	PermitID string `json:"permit_id"`
	Location string `json:"location"`
}

func (h Handlers) CheckOut(c *gin.Context) {
	userID, _, ok := identity(c)
	if !ok {
		return
	}
	var req checkOutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.PermitID == "" || req.Location == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "permit_id, location required"})
		return
	}
	p, err := h.Gate.CheckOut(c.Request.Context(), req.PermitID, req.Location, userID)
	if err != nil {
		abortPermitErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"permit_id":      p.ID,
		"permit_number":  p.PermitNumber,
		"status":         p.Status,
		"checked_out_at": p.ActualCheckOutTime,
	})
}

// --- Reports ---

func (h Handlers) PermitReport(c *gin.Context) {
	tr, ok := parseRange(c)
	if !ok {
		return
	}
	out, err := h.Reports.PermitSummary(c.Request.Context(), reporting.PermitSummaryRequest{
		Range:      tr,
		DataCenter: c.Query("data_center"),
	})
	if err != nil {
		abortReportErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h Handlers) AccessReport(c *gin.Context) {
	tr, ok := parseRange(c)
	if !ok {
		return
	}
	out, err := h.Reports.AccessSummary(c.Request.Context(), reporting.AccessSummaryRequest{
		Range:    tr,
		Location: c.Query("location"),
	})
	if err != nil {
		abortReportErr(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// --- helpers ---

func identity(c *gin.Context) (userID, role string, ok bool) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil || userID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "identity required"})
		return "", "", false
	}
	role, err = auth.Role(c.Request.Context())
	if err != nil || role == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
		return "", "", false
	}
	return userID, role, true
}

// denied maps expected gate failures to a 200 denial payload. A bad scan
// is a loggable outcome for the terminal, not an HTTP error.
func denied(c *gin.Context, err error) bool {
	var se *permit.StateError
	switch {
	case errors.Is(err, access.ErrCredentialMismatch):
		c.JSON(http.StatusOK, gin.H{"granted": false, "valid": false, "reason": err.Error()})
		return true
	case errors.As(err, &se):
		c.JSON(http.StatusOK, gin.H{"granted": false, "valid": false, "reason": se.Error(), "status": se.Current})
		return true
	default:
		return false
	}
}

// abortPermitErr maps core errors onto HTTP statuses. State conflicts
// carry the current status so clients need not re-fetch to explain them.
func abortPermitErr(c *gin.Context, err error) {
	var ve *permit.ValidationError
	var se *permit.StateError
	switch {
	case errors.As(err, &ve):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "field": ve.Field})
	case errors.As(err, &se):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": se.Error(), "status": se.Current})
	case errors.Is(err, permit.ErrForbidden):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, permit.ErrNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "permit not found"})
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func abortReportErr(c *gin.Context, err error) {
	if errors.Is(err, reporting.ErrInvalidRequest) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from/to range required"})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
}

func parseRange(c *gin.Context) (reporting.TimeRange, bool) {
	from, err1 := time.Parse(time.RFC3339, c.Query("from"))
	to, err2 := time.Parse(time.RFC3339, c.Query("to"))
	if err1 != nil || err2 != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from/to must be RFC3339 timestamps"})
		return reporting.TimeRange{}, false
	}
	return reporting.TimeRange{From: from, To: to}, true
}

// redact strips credential material from permit payloads for callers who
// must not see it. The owner presents the QR/OTP at the gate, so the
// owner and the privileged roles receive it; everyone else, security
// terminals and other visitors included, never does.
func redact(p permit.Permit, userID, role string) permit.Permit {
	if rbac.IsPrivileged(role) || p.VisitorID == userID {
		return p
	}
	p.QRCodeData = ""
	p.OTPCode = ""
	return p
}
