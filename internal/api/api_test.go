package api

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/CangTianYi/CS3331/internal/auth"
	"github.com/CangTianYi/CS3331/internal/db"
	"github.com/CangTianYi/CS3331/internal/imaging"
	"github.com/CangTianYi/CS3331/internal/metrics"
	"github.com/CangTianYi/CS3331/internal/model"
	"github.com/CangTianYi/CS3331/internal/service"
	"github.com/CangTianYi/CS3331/internal/store"
)

const testJWTSecret = "test-secret"

func setupTestServer(t *testing.T) (*httptest.Server, string) {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	// Create admin user.
	if _, err := database.EnsureAdmin(ctx, "admin", "password"); err != nil {
		t.Fatalf("seeding admin: %v", err)
	}

	images, err := imaging.NewStore(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatalf("upload store: %v", err)
	}

	users := store.NewUsers(database)
	types := store.NewTypes(database)
	items := store.NewItems(database)
	router := NewRouter(Deps{
		Auth:      service.NewAuth(users),
		Admin:     service.NewAdmin(users, types, items, images),
		Market:    service.NewMarket(types, items, images),
		JWTSecret: testJWTSecret,
		Metrics:   metrics.New("test"),
	})
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server, login(t, server, "admin", "password")
}

func login(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s failed: %d", username, resp.StatusCode)
	}

	var loginResp struct {
		Token string `json:"token"`
	}
	json.NewDecoder(resp.Body).Decode(&loginResp)
	if loginResp.Token == "" {
		t.Fatal("empty token from login")
	}
	return loginResp.Token
}

func authRequest(method, url, token string, body any) (*http.Request, error) {
	var bodyReader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(data)
	} else {
		bodyReader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func do(t *testing.T, method, url, token string, body any, want int, out any) {
	t.Helper()
	req, err := authRequest(method, url, token, body)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		msg, _ := io.ReadAll(resp.Body)
		t.Fatalf("%s %s: expected %d, got %d: %s", method, url, want, resp.StatusCode, msg)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding response: %v", err)
		}
	}
}

// registerApproved registers username and approves it with the admin token.
func registerApproved(t *testing.T, server *httptest.Server, adminToken, username string) string {
	t.Helper()
	var u model.User
	do(t, "POST", server.URL+"/api/auth/register", "", map[string]string{
		"username": username, "password": "secret1", "confirm_password": "secret1",
	}, http.StatusCreated, &u)
	do(t, "POST", server.URL+"/api/users/"+itoa(u.ID)+"/approve", adminToken, nil, http.StatusOK, nil)
	return login(t, server, username, "secret1")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestLoginEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	// Test invalid credentials.
	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, _ := http.Post(server.URL+"/api/auth/login", "application/json", bytes.NewReader(body))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for bad password, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestPendingUserFlow(t *testing.T) {
	server, adminToken := setupTestServer(t)

	var u model.User
	do(t, "POST", server.URL+"/api/auth/register", "", map[string]string{
		"username": "carol", "password": "secret1", "confirm_password": "secret1",
	}, http.StatusCreated, &u)
	if u.Role != model.RolePending {
		t.Errorf("expected pending role, got %q", u.Role)
	}

	// Duplicate username.
	do(t, "POST", server.URL+"/api/auth/register", "", map[string]string{
		"username": "carol", "password": "secret1", "confirm_password": "secret1",
	}, http.StatusConflict, nil)

	// Pending accounts get no token.
	do(t, "POST", server.URL+"/api/auth/login", "", map[string]string{
		"username": "carol", "password": "secret1",
	}, http.StatusForbidden, nil)

	var pending []model.User
	do(t, "GET", server.URL+"/api/users/pending", adminToken, nil, http.StatusOK, &pending)
	if len(pending) != 1 || pending[0].Username != "carol" {
		t.Fatalf("expected carol pending, got %+v", pending)
	}

	do(t, "POST", server.URL+"/api/users/"+itoa(u.ID)+"/approve", adminToken, nil, http.StatusOK, nil)
	token := login(t, server, "carol", "secret1")

	var me model.User
	do(t, "GET", server.URL+"/api/auth/me", token, nil, http.StatusOK, &me)
	if me.Username != "carol" || me.Role != model.RoleUser {
		t.Errorf("unexpected profile %+v", me)
	}

	// Approved accounts cannot be rejected.
	do(t, "POST", server.URL+"/api/users/"+itoa(u.ID)+"/reject", adminToken, nil, http.StatusNotFound, nil)
}

func TestTypesAndItemsAPIFlow(t *testing.T) {
	server, adminToken := setupTestServer(t)
	aliceToken := registerApproved(t, server, adminToken, "alice")
	bobToken := registerApproved(t, server, adminToken, "bob")

	// Users cannot manage types.
	do(t, "POST", server.URL+"/api/types", aliceToken, map[string]any{"name": "Books"}, http.StatusForbidden, nil)

	var books model.ItemType
	do(t, "POST", server.URL+"/api/types", adminToken, map[string]any{
		"name":              "Books",
		"custom_attributes": []map[string]string{{"name": "Pages", "type": "number"}},
	}, http.StatusCreated, &books)

	do(t, "POST", server.URL+"/api/types", adminToken, map[string]any{"name": "Books"}, http.StatusConflict, nil)

	// Bad custom value.
	do(t, "POST", server.URL+"/api/items", aliceToken, map[string]any{
		"type_id": books.ID, "name": "Calculus", "location": "Dorm 3", "contact_phone": "123",
		"custom_values": map[string]string{"Pages": "many"},
	}, http.StatusBadRequest, nil)

	var item model.Item
	do(t, "POST", server.URL+"/api/items", aliceToken, map[string]any{
		"type_id": books.ID, "name": "Calculus", "location": "Dorm 3", "contact_phone": "123",
		"custom_values": map[string]string{"Pages": "500"},
	}, http.StatusCreated, &item)
	if item.OwnerName != "alice" || item.CustomValues["Pages"] != "500" {
		t.Errorf("unexpected item %+v", item)
	}

	var found []model.Item
	do(t, "GET", server.URL+"/api/items?type_id="+itoa(books.ID)+"&q=calc", bobToken, nil, http.StatusOK, &found)
	if len(found) != 1 {
		t.Errorf("expected 1 search hit, got %d", len(found))
	}

	var cards struct {
		Height int `json:"height"`
		Cards  []struct {
			ItemID int64 `json:"item_id"`
		} `json:"cards"`
	}
	do(t, "GET", server.URL+"/api/types/"+itoa(books.ID)+"/cards?width=500", bobToken, nil, http.StatusOK, &cards)
	if len(cards.Cards) != 1 || cards.Cards[0].ItemID != item.ID || cards.Height != 260 {
		t.Errorf("unexpected cards %+v", cards)
	}

	// Bob cannot delete alice's item.
	do(t, "DELETE", server.URL+"/api/items/"+itoa(item.ID), bobToken, nil, http.StatusNotFound, nil)

	var mine []model.Item
	do(t, "GET", server.URL+"/api/items/mine", aliceToken, nil, http.StatusOK, &mine)
	if len(mine) != 1 {
		t.Fatalf("expected alice to still own 1 item, got %d", len(mine))
	}

	do(t, "DELETE", server.URL+"/api/items/"+itoa(item.ID), aliceToken, nil, http.StatusOK, nil)
	do(t, "GET", server.URL+"/api/items/"+itoa(item.ID), aliceToken, nil, http.StatusNotFound, nil)
}

func TestMultipartImageUpload(t *testing.T) {
	server, adminToken := setupTestServer(t)
	aliceToken := registerApproved(t, server, adminToken, "alice")

	var bikes model.ItemType
	do(t, "POST", server.URL+"/api/types", adminToken, map[string]any{"name": "Bikes"}, http.StatusCreated, &bikes)

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})
	var pngData bytes.Buffer
	png.Encode(&pngData, img)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	mw.WriteField("type_id", itoa(bikes.ID))
	mw.WriteField("name", "Giant")
	mw.WriteField("location", "Gate 2")
	mw.WriteField("contact_phone", "13800000000")
	part, _ := mw.CreateFormFile("image", "giant.png")
	part.Write(pngData.Bytes())
	mw.Close()

	req, _ := http.NewRequest("POST", server.URL+"/api/items", &body)
	req.Header.Set("Authorization", "Bearer "+aliceToken)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	var item model.Item
	json.NewDecoder(resp.Body).Decode(&item)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if !strings.HasSuffix(item.ImagePath, ".png") {
		t.Errorf("expected stored png path, got %q", item.ImagePath)
	}

	req, _ = authRequest("GET", server.URL+"/api/items/"+itoa(item.ID)+"/image", aliceToken, nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get image: %v", err)
	}
	got, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("expected image/png, got %q", ct)
	}
	if !bytes.Equal(got, pngData.Bytes()) {
		t.Error("small image should be served unchanged")
	}
}

func TestUnauthenticatedAccess(t *testing.T) {
	server, _ := setupTestServer(t)

	resp, _ := http.Get(server.URL + "/api/items")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated request, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestRoleBasedAccess(t *testing.T) {
	server, _ := setupTestServer(t)

	userToken, _ := auth.GenerateToken(testJWTSecret,
		&model.User{ID: 2, Username: "user1", Role: model.RoleUser}, auth.DefaultTTL)

	// Regular user should not access /api/users.
	req, _ := authRequest("GET", server.URL+"/api/users", userToken, nil)
	resp, _ := http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for user accessing users, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// Tokens signed with another secret are refused.
	forged, _ := auth.GenerateToken("other-secret",
		&model.User{ID: 1, Username: "admin", Role: model.RoleAdmin}, auth.DefaultTTL)
	req, _ = authRequest("GET", server.URL+"/api/users", forged, nil)
	resp, _ = http.DefaultClient.Do(req)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 for forged token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestMetricsEndpoint(t *testing.T) {
	server, token := setupTestServer(t)

	req, _ := authRequest("GET", server.URL+"/api/types", token, nil)
	resp, _ := http.DefaultClient.Do(req)
	resp.Body.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if !strings.Contains(string(body), `test_http_requests_total{method="GET",path="GET /api/types",status="200"} 1`) {
		t.Errorf("request metric missing:\n%s", body)
	}
	if !strings.Contains(string(body), `test_login_attempts_total{result="success"} 1`) {
		t.Errorf("login metric missing")
	}
}
