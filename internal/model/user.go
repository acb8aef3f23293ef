package model

// User is a user record as returned by the backend procedures. The
// backend assigns UserID and owns the row; the service never caches it.
//
// Fields:
//
//	UserID   – backend-assigned identifier, immutable after creation.
//	UserName – unique external identifier.
//	PassWord – credential material; never serialized.
//	FullName, Gender, Phone – optional display fields (NULL allowed).
//	UserRole – opaque role tag, not interpreted by the service.
type User struct {
	UserID   int64   `json:"UserId"`
	UserName string  `json:"UserName"`
	PassWord string  `json:"-"`
	FullName *string `json:"FullName"`
	Gender   *string `json:"Gender"`
	Phone    *string `json:"Phone"`
	UserRole int     `json:"UserRole"`
}

// UserUpdate carries the mutable display fields for one user. Nil fields
// are sent to the backend as NULL.
type UserUpdate struct {
	UserName string
	FullName *string
	Gender   *string
	Phone    *string
}
