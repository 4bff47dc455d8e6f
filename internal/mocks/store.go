// Package mocks provides an in-memory fake of the destination CMS for
// tests: the same wire contract (envelopes, filter queries, bearer auth),
// plus call counters and failure injection.
package mocks

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
)

// StoredEntity is one record held by the fake store.
type StoredEntity struct {
	ID         int            `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

// Store is a fake CMS. All exported knobs may be set before serving;
// operations are safe for concurrent use.
type Store struct {
	mu          sync.Mutex
	Token       string
	nextID      int
	collections map[string][]*StoredEntity

	FindCalls   map[string]int
	CreateCalls map[string]int
	UpdateCalls map[string]int
	Uploads     []string

	// Failure injection: the named op ("find", "create", "update") on the
	// named collection answers FailStatus with an error envelope.
	FailOp         string
	FailCollection string
	FailStatus     int
	FailName       string
	FailMessage    string
}

// NewStore creates an empty fake store guarded by the given bearer token.
func NewStore(token string) *Store {
	return &Store{
		Token:       token,
		collections: make(map[string][]*StoredEntity),
		FindCalls:   make(map[string]int),
		CreateCalls: make(map[string]int),
		UpdateCalls: make(map[string]int),
	}
}

// Seed inserts an entity directly, bypassing the HTTP surface, and returns
// its assigned id.
func (s *Store) Seed(collection string, attrs map[string]any) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.collections[collection] = append(s.collections[collection], &StoredEntity{ID: s.nextID, Attributes: attrs})
	return s.nextID
}

// Count reports how many entities a collection holds.
func (s *Store) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.collections[collection])
}

// FindBy returns the first entity in collection whose field equals value,
// or nil.
func (s *Store) FindBy(collection, field, value string) *StoredEntity {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.collections[collection] {
		if fmt.Sprint(e.Attributes[field]) == value {
			return e
		}
	}
	return nil
}

// Router builds the gin engine serving the store's REST surface.
func (s *Store) Router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(s.authMiddleware())

	r.POST("/api/upload", s.handleUpload)
	r.GET("/api/:collection", s.handleList)
	r.POST("/api/:collection", s.handleCreate)
	r.PUT("/api/:collection/:id", s.handleUpdate)

	return r
}

func (s *Store) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer "+s.Token {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{"name": "UnauthorizedError", "message": "Missing or invalid credentials"},
			})
			return
		}
		c.Next()
	}
}

func (s *Store) shouldFail(op, collection string) bool {
	return s.FailOp == op && s.FailCollection == collection
}

func (s *Store) failResponse(c *gin.Context) {
	status := s.FailStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": gin.H{"name": s.FailName, "message": s.FailMessage}})
}

func (s *Store) handleList(c *gin.Context) {
	collection := c.Param("collection")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.FindCalls[collection]++

	if s.shouldFail("find", collection) {
		s.failResponse(c)
		return
	}

	// Filters arrive as filters[field][$eq]=value query keys.
	var field, value string
	for key, vals := range c.Request.URL.Query() {
		if strings.HasPrefix(key, "filters[") && strings.HasSuffix(key, "][$eq]") && len(vals) > 0 {
			field = strings.TrimSuffix(strings.TrimPrefix(key, "filters["), "][$eq]")
			value = vals[0]
		}
	}

	matches := make([]*StoredEntity, 0)
	for _, e := range s.collections[collection] {
		if field == "" || fmt.Sprint(e.Attributes[field]) == value {
			matches = append(matches, e)
		}
	}

	c.JSON(http.StatusOK, gin.H{"data": matches, "meta": gin.H{"total": len(matches)}})
}

func (s *Store) handleCreate(c *gin.Context) {
	collection := c.Param("collection")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.CreateCalls[collection]++

	if s.shouldFail("create", collection) {
		s.failResponse(c)
		return
	}

	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"name": "ValidationError", "message": err.Error()}})
		return
	}

	s.nextID++
	entity := &StoredEntity{ID: s.nextID, Attributes: body.Data}
	s.collections[collection] = append(s.collections[collection], entity)

	c.JSON(http.StatusOK, gin.H{"data": entity})
}

func (s *Store) handleUpdate(c *gin.Context) {
	collection := c.Param("collection")
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"name": "ValidationError", "message": "invalid id"}})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.UpdateCalls[collection]++

	if s.shouldFail("update", collection) {
		s.failResponse(c)
		return
	}

	var body struct {
		Data map[string]any `json:"data"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"name": "ValidationError", "message": err.Error()}})
		return
	}

	for _, e := range s.collections[collection] {
		if e.ID == id {
			e.Attributes = body.Data
			c.JSON(http.StatusOK, gin.H{"data": e})
			return
		}
	}

	c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"name": "NotFoundError", "message": "Not Found"}})
}

func (s *Store) handleUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("files")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"name": "ValidationError", "message": "files field required"}})
		return
	}
	defer file.Close()
	io.Copy(io.Discard, file)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.Uploads = append(s.Uploads, header.Filename)

	c.JSON(http.StatusOK, []gin.H{{
		"id":   s.nextID,
		"name": header.Filename,
		"url":  "http://" + c.Request.Host + "/uploads/" + header.Filename,
	}})
}
