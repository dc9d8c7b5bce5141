package model

import "time"

// Roles carried in the access token's role claim.
const (
    RoleUser  = "USER"
    RoleAdmin = "ADMIN"
)

// User represents a customer or staff account as stored in the `users`
// table.  The json tags are omitted because the struct is only used
// internally; handlers expose a trimmed view.
//
// Fields:
//  ID           – primary key identifier (uuid).
//  Name         – display name, copied into order snapshots.
//  Email        – unique, normalized to lower case.
//  Phone        – optional contact number.
//  PasswordHash – bcrypt hash.
//  Role         – USER or ADMIN.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           string    // users.id
    Name         string    // users.name
    Email        string    // users.email
    Phone        string    // users.phone
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}
