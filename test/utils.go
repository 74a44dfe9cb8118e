package test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"time"

	"wardrobeapi/models"

	"github.com/golang-jwt/jwt/v4"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

const defaultJWTSecret = "test-secret"

func JWTSecret() string {
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		return secret
	}
	return defaultJWTSecret
}

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {

	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func GenerateUserToken(userPk string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userPk,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour * 72)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	t, err := token.SignedString([]byte(JWTSecret()))
	if err != nil {
		log.Fatalf("Error when signing user token for %s. Error %s ", userPk, err)
	}
	return t
}

func NewJSONAuthRequest(method string, target string, userPk string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func NewJSONAuthRequestRaw(method string, target string, userPk string, json string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(json))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	token := GenerateUserToken(userPk)
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", token))
	return req
}

func NewRefString(data string) *string {
	return &data
}

func FakeUser(db *gorm.DB, email string) *models.UserAccount {
	if email == "" {
		email = "email@example.com"
	}
	user := &models.UserAccount{
		Email:                email,
		FullName:             NewRefString("Jane Doe"),
		ReceiveNotifications: true,
	}
	db.Create(&user)
	tokenDb := models.UserPushToken{
		UserAccountID: user.ID,
		Platform:      "android",
		Token:         "cX-UZ3zwQEiPt-2GJkG2gA:APA91bGqRflaGrJrnynhRwZ442HdgUjVcO7mWMFnx6IwAdJ9RRKopvSP4QU7hbvTmk1XAp8XGvtHZLvo5JmOPTVKBbGqqvhfbZWKlXA9csEjx1hgpNvrWepU",
		Active:        true,
	}
	db.Save(&tokenDb)
	db.First(&user, user.ID)
	return user
}

func FakeWardrobeItem(db *gorm.DB, userID uint, name string, category models.Category, color string, imageURL string) *models.WardrobeItem {
	item := &models.WardrobeItem{
		UserAccountID: userID,
		Name:          name,
		Category:      category,
	}
	if color != "" {
		item.Color = &color
	}
	if imageURL != "" {
		item.ImageURL = &imageURL
	}
	db.Create(&item)
	return item
}

// FakeObjectStore is an in-memory bucket served over HTTP, so presigned PUT
// and GET URLs behave like the real thing.
type FakeObjectStore struct {
	Server *httptest.Server

	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	deleted []string
	// Public switches PublicURL between a public bucket and a private one.
	Public bool
	// FailUploads makes every PUT answer 500.
	FailUploads bool
}

func NewFakeObjectStore() *FakeObjectStore {
	s := &FakeObjectStore{
		objects: map[string][]byte{},
		types:   map[string]string{},
		Public:  true,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

func (s *FakeObjectStore) serve(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/")
	s.mu.Lock()
	defer s.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		if s.FailUploads {
			http.Error(w, "upload disabled", http.StatusInternalServerError)
			return
		}
		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.objects[key] = data
		s.types[key] = r.Header.Get("Content-Type")
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := s.objects[key]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", s.types[key])
		w.Write(data)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *FakeObjectStore) Close() {
	s.Server.Close()
}

func (s *FakeObjectStore) PresignUpload(ctx context.Context, key string, contentType string) (string, error) {
	return s.Server.URL + "/" + key + "?X-Amz-Signature=upload", nil
}

func (s *FakeObjectStore) PresignRead(ctx context.Context, key string) (string, error) {
	return s.Server.URL + "/" + key + "?X-Amz-Signature=read", nil
}

func (s *FakeObjectStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

func (s *FakeObjectStore) PublicURL(key string) string {
	if !s.Public {
		return ""
	}
	return s.Server.URL + "/" + key
}

func (s *FakeObjectStore) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	return data, ok
}

func (s *FakeObjectStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for key := range s.objects {
		keys = append(keys, key)
	}
	return keys
}

func (s *FakeObjectStore) Deleted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

// EnqueuerMock records tasks instead of sending them to redis.
type EnqueuerMock struct {
	mu    sync.Mutex
	Tasks []*asynq.Task
	Err   error
}

func (m *EnqueuerMock) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	m.Tasks = append(m.Tasks, task)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(m.Tasks)), Type: task.Type(), Payload: task.Payload()}, nil
}

// PNGBytes is a tiny valid PNG header followed by filler.
func PNGBytes() []byte {
	return append([]byte("\x89PNG\r\n\x1a\n"), []byte("fake-image-body")...)
}
