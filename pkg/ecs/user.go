package ecs

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

type objectUserCreate struct {
	User      string `json:"user"`
	Namespace string `json:"namespace"`
}

type objectUserDelete struct {
	User string `json:"user"`
}

type userMapCreate struct {
	UID       string `json:"uid"`
	Namespace string `json:"namespace"`
}

// UserExists probes for an object user in a namespace.
func (c *Connection) UserExists(ctx context.Context, uid, namespace string) (bool, error) {
	query := url.Values{"namespace": []string{namespace}}
	out := &struct {
		Name string `json:"name"`
	}{}
	err := c.do(ctx, http.MethodGet, "/object/users/"+uid+"/info.json", query, nil, out)
	if err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateUser creates an object user scoped to a namespace.
func (c *Connection) CreateUser(ctx context.Context, uid, namespace string) error {
	return c.do(ctx, http.MethodPost, "/object/users.json", nil, objectUserCreate{User: uid, Namespace: namespace}, nil)
}

// DeleteUser removes an object user.
func (c *Connection) DeleteUser(ctx context.Context, uid string) error {
	return c.do(ctx, http.MethodPost, "/object/users/deactivate.json", nil, objectUserDelete{User: uid}, nil)
}

// CreateUserSecret generates a new secret key for a user. The key material is
// returned once here; afterwards it is only available via ListUserSecrets.
func (c *Connection) CreateUserSecret(ctx context.Context, uid string) (*UserSecretKey, error) {
	key := &UserSecretKey{}
	err := c.do(ctx, http.MethodPost, "/object/user-secret-keys/"+uid+".json", nil, struct{}{}, key)
	if err != nil {
		return nil, err
	}
	return key, nil
}

// ListUserSecrets returns the secret keys currently held by a user, newest
// first.
func (c *Connection) ListUserSecrets(ctx context.Context, uid string) ([]UserSecretKey, error) {
	list := &userSecretKeyList{}
	err := c.do(ctx, http.MethodGet, "/object/user-secret-keys/"+uid+".json", nil, nil, list)
	if err != nil {
		return nil, err
	}
	var keys []UserSecretKey
	if list.SecretKey1 != "" {
		keys = append(keys, UserSecretKey{SecretKey: list.SecretKey1, KeyTimestamp: list.Timestamp1})
	}
	if list.SecretKey2 != "" {
		keys = append(keys, UserSecretKey{SecretKey: list.SecretKey2, KeyTimestamp: list.Timestamp2})
	}
	return keys, nil
}

// CreateUserMap maps an object user to a unix UID for file access.
func (c *Connection) CreateUserMap(ctx context.Context, uid string, unixUID int, namespace string) error {
	body := userMapCreate{UID: strconv.Itoa(unixUID), Namespace: namespace}
	return c.do(ctx, http.MethodPost, "/object/users/"+uid+"/usermapping.json", nil, body, nil)
}

// DeleteUserMap removes a user's unix UID mapping.
func (c *Connection) DeleteUserMap(ctx context.Context, uid, unixUID, namespace string) error {
	query := url.Values{
		"namespace": []string{namespace},
		"uid":       []string{unixUID},
	}
	return c.do(ctx, http.MethodDelete, "/object/users/"+uid+"/usermapping.json", query, nil, nil)
}
