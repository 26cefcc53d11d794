package audit

import "fmt"

func subject(user string) string {
	if user == "" {
		return "anonymous"
	}
	return user
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// AllowEvent records a grant
type AllowEvent struct {
	UserID       string
	ClientIP     string
	Triple       string
	Success      bool
	ErrorMessage string
}

func (e AllowEvent) MessageID() string {
	return "allow"
}

func (e AllowEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s granted %s", subject(e.UserID), e.Triple)
	}
	msg := fmt.Sprintf("%s tried to grant %s", subject(e.UserID), e.Triple)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e AllowEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e AllowEvent) Facility() int {
	return FacilityAuthPriv
}

func (e AllowEvent) StructuredData() map[string]map[string]string {
	return tripleData(e.UserID, e.ClientIP, e.Triple, "allow", result(e.Success))
}

// DisallowEvent records a revocation
type DisallowEvent struct {
	UserID       string
	ClientIP     string
	Triple       string
	Success      bool
	ErrorMessage string
}

func (e DisallowEvent) MessageID() string {
	return "disallow"
}

func (e DisallowEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s revoked %s", subject(e.UserID), e.Triple)
	}
	msg := fmt.Sprintf("%s tried to revoke %s", subject(e.UserID), e.Triple)
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e DisallowEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e DisallowEvent) Facility() int {
	return FacilityAuthPriv
}

func (e DisallowEvent) StructuredData() map[string]map[string]string {
	return tripleData(e.UserID, e.ClientIP, e.Triple, "disallow", result(e.Success))
}

// CheckEvent represents a permission check audit event
type CheckEvent struct {
	UserID       string
	ClientIP     string
	Triple       string
	Allowed      bool
	ErrorMessage string
}

func (e CheckEvent) MessageID() string {
	return "check"
}

func (e CheckEvent) Message() string {
	if e.ErrorMessage != "" {
		return fmt.Sprintf("%s failed to check %s: %s", subject(e.UserID), e.Triple, e.ErrorMessage)
	}
	if e.Allowed {
		return fmt.Sprintf("%s checked %s: allowed", subject(e.UserID), e.Triple)
	}
	return fmt.Sprintf("%s checked %s: denied", subject(e.UserID), e.Triple)
}

func (e CheckEvent) Severity() Severity {
	if e.ErrorMessage != "" {
		return SeverityWarning
	}
	return SeverityInfo
}

func (e CheckEvent) Facility() int {
	return FacilityAuthPriv
}

func (e CheckEvent) StructuredData() map[string]map[string]string {
	return tripleData(e.UserID, e.ClientIP, e.Triple, "check", result(e.Allowed))
}

func tripleData(user, ip, triple, operation, result string) map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDSubject: {
			"triple": triple,
		},
		SDIDAction: {
			"operation": operation,
			"result":    result,
		},
	}
	if user != "" {
		sd[SDIDAuth] = map[string]string{"user": user}
	}
	if ip != "" {
		sd[SDIDClient] = map[string]string{"ip": ip}
	}
	return sd
}

// AuthenticateEvent represents an API authentication attempt
type AuthenticateEvent struct {
	UserID       string
	ClientIP     string
	Success      bool
	ErrorMessage string
}

func (e AuthenticateEvent) MessageID() string {
	return "authn"
}

func (e AuthenticateEvent) Message() string {
	if e.Success {
		return fmt.Sprintf("%s successfully authenticated", subject(e.UserID))
	}
	msg := fmt.Sprintf("%s failed to authenticate", subject(e.UserID))
	if e.ErrorMessage != "" {
		msg += ": " + e.ErrorMessage
	}
	return msg
}

func (e AuthenticateEvent) Severity() Severity {
	if e.Success {
		return SeverityInfo
	}
	return SeverityWarning
}

func (e AuthenticateEvent) Facility() int {
	return FacilityAuthPriv
}

func (e AuthenticateEvent) StructuredData() map[string]map[string]string {
	sd := map[string]map[string]string{
		SDIDAuth: {
			"authenticator": "jwt",
			"user":          subject(e.UserID),
		},
		SDIDAction: {
			"operation": "authenticate",
			"result":    result(e.Success),
		},
	}
	if e.ClientIP != "" {
		sd[SDIDClient] = map[string]string{"ip": e.ClientIP}
	}
	return sd
}
