package ecs

import (
	"context"
	"net/http"
	"net/url"
)

// ListBaseURLs returns the base URLs configured on the management server.
func (c *Connection) ListBaseURLs(ctx context.Context) ([]BaseURL, error) {
	list := &baseURLList{}
	err := c.do(ctx, http.MethodGet, "/object/baseurl.json", nil, nil, list)
	if err != nil {
		return nil, err
	}
	return list.BaseURLs, nil
}

// GetBaseURL fetches the details of one base URL by ID.
func (c *Connection) GetBaseURL(ctx context.Context, id string) (*BaseURLInfo, error) {
	info := &BaseURLInfo{}
	err := c.do(ctx, http.MethodGet, "/object/baseurl/"+id+".json", nil, nil, info)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// ListReplicationGroups returns the replication groups (vpools) available on
// the cluster.
func (c *Connection) ListReplicationGroups(ctx context.Context) ([]ReplicationGroup, error) {
	list := &replicationGroupList{}
	err := c.do(ctx, http.MethodGet, "/vdc/data-service/vpools.json", nil, nil, list)
	if err != nil {
		return nil, err
	}
	return list.ReplicationGroups, nil
}

// ListNFSExports returns the NFS exports under the given path prefix, or nil
// when none exist.
func (c *Connection) ListNFSExports(ctx context.Context, pathPrefix string) ([]NFSExport, error) {
	query := url.Values{"pathprefix": []string{pathPrefix}}
	list := &nfsExportList{}
	err := c.do(ctx, http.MethodGet, "/object/nfs/exports.json", query, nil, list)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return list.Exports, nil
}

// CreateNFSExport creates an NFS export for the given absolute path.
func (c *Connection) CreateNFSExport(ctx context.Context, exportPath string) error {
	body := struct {
		Path string `json:"path"`
	}{Path: exportPath}
	return c.do(ctx, http.MethodPost, "/object/nfs/exports.json", nil, body, nil)
}
