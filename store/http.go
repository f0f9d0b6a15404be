package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"

	"github.com/janelia-flyem/ezimage/ezimage"
)

const (
	// DefaultTimeout bounds every gateway round-trip.
	DefaultTimeout = 60 * time.Second

	sessionKeyHeader = "X-Session-Key"
	clientIDHeader   = "X-Client-Id"
)

// HTTPClient talks to the image server's JSON gateway API.  It implements
// the full Client interface.  One HTTPClient may be shared across
// goroutines; per-call state like raw channels is never cached on it.
type HTTPClient struct {
	base     string // e.g. "https://images.example.org:4064/api/v0"
	client   *http.Client
	clientID string // correlates client log lines with server logs

	sessionKey string
	groupID    int64
}

// NewHTTPClient returns a gateway client rooted at the given base URL.
// The clientID is attached to every request for server-side correlation.
func NewHTTPClient(base, clientID string) *HTTPClient {
	return &HTTPClient{
		base:     base,
		client:   &http.Client{Timeout: DefaultTimeout},
		clientID: clientID,
	}
}

func (c *HTTPClient) newRequest(method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, c.base+path, body)
	if err != nil {
		return nil, err
	}
	if c.sessionKey != "" {
		req.Header.Set(sessionKeyHeader, c.sessionKey)
	}
	if c.clientID != "" {
		req.Header.Set(clientIDHeader, c.clientID)
	}
	if c.groupID != 0 {
		req.Header.Set("X-Group-Context", strconv.FormatInt(c.groupID, 10))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do runs a request and returns the decompressed response body.  Pixel
// payload endpoints may answer with snappy or gzip content encoding.
func (c *HTTPClient) do(method, path string, body io.Reader) ([]byte, error) {
	req, err := c.newRequest(method, path, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway %s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated, http.StatusNoContent:
	case http.StatusNotFound:
		return nil, fmt.Errorf("gateway %s %s: %w", method, path, ezimage.ErrNotFound)
	case http.StatusRequestedRangeNotSatisfiable:
		return nil, fmt.Errorf("gateway %s %s: %w", method, path, ezimage.ErrOutOfRange)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gateway %s %s: status %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(msg))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway %s %s: reading body: %v", method, path, err)
	}
	switch resp.Header.Get("Content-Encoding") {
	case "snappy":
		if data, err = snappy.Decode(nil, data); err != nil {
			return nil, fmt.Errorf("gateway %s %s: snappy payload: %v", method, path, err)
		}
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gateway %s %s: gzip payload: %v", method, path, err)
		}
		if data, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("gateway %s %s: gzip payload: %v", method, path, err)
		}
		zr.Close()
	}
	return data, nil
}

func (c *HTTPClient) getJSON(path string, v interface{}) error {
	data, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (c *HTTPClient) postJSON(path string, reqBody, v interface{}) error {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}
	data, err := c.do(http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if v != nil {
		return json.Unmarshal(data, v)
	}
	return nil
}

// --- Authenticator ---

func (c *HTTPClient) Login(user, password, group string) (*SessionInfo, error) {
	var info SessionInfo
	err := c.postJSON("/session", map[string]string{
		"user":     user,
		"password": password,
		"group":    group,
	}, &info)
	if err != nil {
		return nil, err
	}
	c.sessionKey = info.Key
	c.groupID = info.GroupID
	return &info, nil
}

func (c *HTTPClient) Logout() error {
	_, err := c.do(http.MethodDelete, "/session", nil)
	c.sessionKey = ""
	return err
}

func (c *HTTPClient) ServerVersion() (string, error) {
	var v struct {
		Version string `json:"version"`
	}
	if err := c.getJSON("/version", &v); err != nil {
		return "", err
	}
	return v.Version, nil
}

func (c *HTTPClient) Close() error {
	if c.sessionKey != "" {
		return c.Logout()
	}
	return nil
}

// --- ImageMetadata ---

func (c *HTTPClient) DescribeImage(id int64) (*ImageDescriptor, error) {
	var desc ImageDescriptor
	if err := c.getJSON(fmt.Sprintf("/images/%d", id), &desc); err != nil {
		return nil, err
	}
	return &desc, nil
}

// --- PlaneReader ---

// splitPlanes carves a batched pixel payload into per-plane buffers.
func splitPlanes(data []byte, n int, planeBytes int64) ([][]byte, error) {
	if int64(len(data)) != int64(n)*planeBytes {
		return nil, fmt.Errorf("pixel payload is %d bytes, want %d planes x %d bytes",
			len(data), n, planeBytes)
	}
	planes := make([][]byte, n)
	for i := range planes {
		planes[i] = data[int64(i)*planeBytes : int64(i+1)*planeBytes]
	}
	return planes, nil
}

func (c *HTTPClient) readPixelBatch(path string, reqBody interface{}, n int) ([][]byte, error) {
	if n == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	timedLog := ezimage.NewTimeLog()
	data, err := c.do(http.MethodPost, path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	planeBytes := int64(len(data)) / int64(n)
	planes, err := splitPlanes(data, n, planeBytes)
	if err != nil {
		return nil, err
	}
	timedLog.Debugf("fetched %d planes, %s", n, humanize.Bytes(uint64(len(data))))
	return planes, nil
}

func (c *HTTPClient) ReadPlanes(pixelsID int64, planes []ZCT) ([][]byte, error) {
	return c.readPixelBatch(fmt.Sprintf("/pixels/%d/planes", pixelsID), planes, len(planes))
}

func (c *HTTPClient) ReadTiles(pixelsID int64, tiles []TileReq) ([][]byte, error) {
	return c.readPixelBatch(fmt.Sprintf("/pixels/%d/tiles", pixelsID), tiles, len(tiles))
}

// --- RawStoreOpener ---

// httpRawStore is a server-side raw pixel channel addressed by handle id.
// It is exclusive to one extraction call and must be closed by the caller.
type httpRawStore struct {
	c      *HTTPClient
	handle int64
}

func (c *HTTPClient) OpenRawStore(pixelsID int64) (RawStore, error) {
	var opened struct {
		Handle int64 `json:"handle"`
	}
	if err := c.postJSON(fmt.Sprintf("/pixels/%d/raw", pixelsID), nil, &opened); err != nil {
		return nil, err
	}
	return &httpRawStore{c: c, handle: opened.Handle}, nil
}

func (s *httpRawStore) Resolutions() ([]Resolution, error) {
	var levels []Resolution
	if err := s.c.getJSON(fmt.Sprintf("/raw/%d/resolutions", s.handle), &levels); err != nil {
		return nil, err
	}
	return levels, nil
}

func (s *httpRawStore) SetResolution(internalIndex int) error {
	return s.c.postJSON(fmt.Sprintf("/raw/%d/resolution", s.handle),
		map[string]int{"index": internalIndex}, nil)
}

func (s *httpRawStore) ReadPlane(z, c, t int32) ([]byte, error) {
	q := url.Values{}
	q.Set("z", strconv.Itoa(int(z)))
	q.Set("c", strconv.Itoa(int(c)))
	q.Set("t", strconv.Itoa(int(t)))
	return s.c.do(http.MethodGet, fmt.Sprintf("/raw/%d/plane?%s", s.handle, q.Encode()), nil)
}

func (s *httpRawStore) ReadTile(z, c, t, x, y, w, h int32) ([]byte, error) {
	q := url.Values{}
	q.Set("z", strconv.Itoa(int(z)))
	q.Set("c", strconv.Itoa(int(c)))
	q.Set("t", strconv.Itoa(int(t)))
	q.Set("x", strconv.Itoa(int(x)))
	q.Set("y", strconv.Itoa(int(y)))
	q.Set("w", strconv.Itoa(int(w)))
	q.Set("h", strconv.Itoa(int(h)))
	return s.c.do(http.MethodGet, fmt.Sprintf("/raw/%d/tile?%s", s.handle, q.Encode()), nil)
}

func (s *httpRawStore) Close() error {
	_, err := s.c.do(http.MethodDelete, fmt.Sprintf("/raw/%d", s.handle), nil)
	return err
}

// --- Lister ---

func (c *HTTPClient) ListIDs(result string, container ContainerKind, containerID int64) ([]int64, error) {
	q := url.Values{}
	if container != NoContainer {
		q.Set(string(container), strconv.FormatInt(containerID, 10))
	}
	path := fmt.Sprintf("/%ss", result)
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	var ids []int64
	if err := c.getJSON(path, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *HTTPClient) WellAt(plateID int64, row, column int32) (int64, error) {
	var well struct {
		ID int64 `json:"id"`
	}
	path := fmt.Sprintf("/plates/%d/wells/%d/%d", plateID, row, column)
	if err := c.getJSON(path, &well); err != nil {
		return 0, err
	}
	return well.ID, nil
}

func (c *HTTPClient) AnnotationIDs(objType string, objID int64, kind AnnotationKind, ns string) ([]int64, error) {
	q := url.Values{}
	q.Set("kind", string(kind))
	if ns != "" {
		q.Set("ns", ns)
	}
	path := fmt.Sprintf("/%ss/%d/annotations?%s", objType, objID, q.Encode())
	var ids []int64
	if err := c.getJSON(path, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *HTTPClient) ROIIDs(imageID int64) ([]int64, error) {
	var ids []int64
	if err := c.getJSON(fmt.Sprintf("/images/%d/rois", imageID), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *HTTPClient) ShapeIDs(roiID int64) ([]int64, error) {
	var ids []int64
	if err := c.getJSON(fmt.Sprintf("/rois/%d/shapes", roiID), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (c *HTTPClient) GroupID(name string) (int64, error) {
	return c.idByName("/groups/lookup", name)
}

func (c *HTTPClient) UserID(name string) (int64, error) {
	return c.idByName("/users/lookup", name)
}

func (c *HTTPClient) idByName(path, name string) (int64, error) {
	var obj struct {
		ID int64 `json:"id"`
	}
	if err := c.getJSON(path+"?name="+url.QueryEscape(name), &obj); err != nil {
		return 0, err
	}
	return obj.ID, nil
}

func (c *HTTPClient) OriginalFilepaths(imageID int64, source string) ([]string, error) {
	var paths []string
	path := fmt.Sprintf("/images/%d/filepaths?source=%s", imageID, url.QueryEscape(source))
	if err := c.getJSON(path, &paths); err != nil {
		return nil, err
	}
	return paths, nil
}

func (c *HTTPClient) SeriesIndex(imageID int64) (int64, error) {
	var obj struct {
		Series int64 `json:"series"`
	}
	if err := c.getJSON(fmt.Sprintf("/images/%d/series", imageID), &obj); err != nil {
		return 0, err
	}
	return obj.Series, nil
}

// --- AnnotationStore ---

type wireMapAnnotation struct {
	NS    string      `json:"ns"`
	Pairs [][2]string `json:"pairs"`
}

func (c *HTTPClient) MapAnnotationValue(id int64) ([][2]string, string, error) {
	var ann wireMapAnnotation
	if err := c.getJSON(fmt.Sprintf("/annotations/map/%d", id), &ann); err != nil {
		return nil, "", err
	}
	return ann.Pairs, ann.NS, nil
}

func (c *HTTPClient) SaveMapAnnotation(id int64, pairs [][2]string, ns string) error {
	return c.postJSON(fmt.Sprintf("/annotations/map/%d", id),
		wireMapAnnotation{NS: ns, Pairs: pairs}, nil)
}

func (c *HTTPClient) TagValue(id int64) (string, error) {
	return c.annotationText("tag", id)
}

func (c *HTTPClient) CommentValue(id int64) (string, error) {
	return c.annotationText("comment", id)
}

func (c *HTTPClient) annotationText(kind string, id int64) (string, error) {
	var ann struct {
		Value string `json:"value"`
	}
	if err := c.getJSON(fmt.Sprintf("/annotations/%s/%d", kind, id), &ann); err != nil {
		return "", err
	}
	return ann.Value, nil
}

func (c *HTTPClient) FileAnnotationName(id int64) (string, error) {
	var ann struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(fmt.Sprintf("/annotations/file/%d", id), &ann); err != nil {
		return "", err
	}
	return ann.Name, nil
}

func (c *HTTPClient) FileAnnotationContent(id int64) (io.ReadCloser, error) {
	req, err := c.newRequest(http.MethodGet, fmt.Sprintf("/annotations/file/%d/content", id), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, fmt.Errorf("file annotation %d: %w", id, ezimage.ErrNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("file annotation %d: status %d", id, resp.StatusCode)
	}
	return resp.Body, nil
}

func (c *HTTPClient) SetDescription(objType string, id int64, desc string) error {
	return c.postJSON(fmt.Sprintf("/%ss/%d/description", objType, id),
		map[string]string{"description": desc}, nil)
}

// --- ROIStore ---

func (c *HTTPClient) Shape(id int64) (*WireShape, error) {
	var shape WireShape
	if err := c.getJSON(fmt.Sprintf("/shapes/%d", id), &shape); err != nil {
		return nil, err
	}
	return &shape, nil
}

// --- TableStore ---

type wireTable struct {
	Columns []struct {
		Name     string    `json:"name"`
		Kind     string    `json:"kind"` // "int64", "float64", "string"
		Int64s   []int64   `json:"int64s,omitempty"`
		Float64s []float64 `json:"float64s,omitempty"`
		Strings  []string  `json:"strings,omitempty"`
	} `json:"columns"`
	NumRows int `json:"num_rows"`
}

func (c *HTTPClient) TableData(fileAnnID int64) (*TableData, error) {
	var wire wireTable
	if err := c.getJSON(fmt.Sprintf("/tables/%d", fileAnnID), &wire); err != nil {
		return nil, err
	}
	table := &TableData{NumRows: wire.NumRows}
	for _, col := range wire.Columns {
		tcol := TableColumn{Name: col.Name}
		switch col.Kind {
		case "int64":
			tcol.Kind = Int64Column
			tcol.Int64s = col.Int64s
		case "float64":
			tcol.Kind = Float64Column
			tcol.Float64s = col.Float64s
		case "string":
			tcol.Kind = StringColumn
			tcol.Strings = col.Strings
		default:
			return nil, fmt.Errorf("table column %q has kind %q: %w",
				col.Name, col.Kind, ezimage.ErrInvalidArgument)
		}
		table.Columns = append(table.Columns, tcol)
	}
	return table, nil
}

// --- GroupService ---

func (c *HTTPClient) GroupMembers(groupID int64) (owners, members []int64, err error) {
	var summary struct {
		Owners  []int64 `json:"owners"`
		Members []int64 `json:"members"`
	}
	if err = c.getJSON(fmt.Sprintf("/groups/%d/members", groupID), &summary); err != nil {
		return nil, nil, err
	}
	return summary.Owners, summary.Members, nil
}

func (c *HTTPClient) SetGroupContext(groupID int64) {
	c.groupID = groupID
}

func (c *HTTPClient) GroupContext() int64 {
	return c.groupID
}
