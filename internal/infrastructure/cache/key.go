package cache

import (
	"fmt"
	"time"
)

// CacheKey namespaces every cache entry this fabric produces, so two
// callers can never collide on a bare string and so invalidation call
// sites read as intent ("invalidate this user's org list") rather than
// string concatenation.
//
// Negative keys (entries that cache the absence of something, e.g. an
// invalid API key) are distinct namespaces with their own, shorter TTL -
// callers must not reuse the positive key for a negative result.
type CacheKey string

func Organization(id string) CacheKey        { return CacheKey(fmt.Sprintf("organization:%s", id)) }
func OrganizationSlug(slug string) CacheKey  { return CacheKey(fmt.Sprintf("org:slug:%s", slug)) }
func Project(id string) CacheKey             { return CacheKey(fmt.Sprintf("project:%s", id)) }
func ProjectsForUser(userID string) CacheKey {
	return CacheKey(fmt.Sprintf("projects_for_user:%s", userID))
}
func ProjectsForOrg(orgID string) CacheKey {
	return CacheKey(fmt.Sprintf("projects_for_org:%s", orgID))
}
func Membership(orgID, userID string) CacheKey {
	return CacheKey(fmt.Sprintf("membership:%s:%s", orgID, userID))
}
func OrgsForUser(userID string) CacheKey { return CacheKey(fmt.Sprintf("orgs_for_user:%s", userID)) }
func User(id string) CacheKey            { return CacheKey(fmt.Sprintf("user:%s", id)) }
func UserEmail(email string) CacheKey    { return CacheKey(fmt.Sprintf("user:email:%s", email)) }
func APIKey(hash string) CacheKey        { return CacheKey(fmt.Sprintf("api_key:%s", hash)) }
func APIKeyNegative(hash string) CacheKey {
	return CacheKey(fmt.Sprintf("api_key_negative:%s", hash))
}
func APIKeysForOrg(orgID string) CacheKey {
	return CacheKey(fmt.Sprintf("api_keys_for_org:%s", orgID))
}
func AuthOAuth(provider, providerID string) CacheKey {
	return CacheKey(fmt.Sprintf("auth_oauth:%s:%s", provider, providerID))
}
func AuthMethodsForUser(userID string) CacheKey {
	return CacheKey(fmt.Sprintf("auth_methods_for_user:%s", userID))
}

// MembershipTTL bounds how stale an authorization decision derived from
// the membership cache can be; it is deliberately short because a
// revoked member must lose access quickly.
const MembershipTTL = 60 * time.Second
