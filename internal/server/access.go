package server

import (
	"fmt"
	"net/http"
)

const (
	RolePublic = "PUBLIC"
	RoleUser   = "user"
	RoleAdmin  = "admin"
)

type AccessRule struct {
	Method string
	Path   string
	Roles  []string
}

var endpointAccess = []AccessRule{
	{Method: http.MethodPost, Path: "/auth/login", Roles: []string{RolePublic}},
	{Method: http.MethodGet, Path: "/auth/refresh", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/auth/logout", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/auth/verify/{token}", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/auth/forgot", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/auth/reset/{token}", Roles: []string{RolePublic}},
	{Method: http.MethodGet, Path: "/auth/sso/{provider}", Roles: []string{RolePublic}},
	{Method: http.MethodGet, Path: "/auth/sso/{provider}/callback", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/users/register", Roles: []string{RolePublic}},
	{Method: http.MethodPost, Path: "/users/resend/email", Roles: []string{RolePublic}},

	{Method: http.MethodGet, Path: "/users", Roles: []string{RoleUser, RoleAdmin}},
	{Method: http.MethodPatch, Path: "/users/{id}", Roles: []string{RoleUser, RoleAdmin}},
	{Method: http.MethodDelete, Path: "/users/{id}", Roles: []string{RoleUser, RoleAdmin}},
}

func accessRoles(method, path string) []string {
	for _, rule := range endpointAccess {
		if rule.Method == method && rule.Path == path {
			return rule.Roles
		}
	}
	panic(fmt.Sprintf("missing access rule for %s %s", method, path))
}

func isPublicAccess(roles []string) bool {
	for _, role := range roles {
		if role == RolePublic {
			return true
		}
	}
	return false
}
