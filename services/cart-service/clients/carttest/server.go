// Package carttest provides an in-memory account cart API for tests.
package carttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Product is a catalog entry the fake server can put into a cart.
type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Image    string
	Category string
}

type line struct {
	id        string
	productID string
	quantity  int
}

// Server is an httptest server speaking the account cart REST contract.
// Requests must carry "Authorization: Bearer <Token>" unless Token is empty.
type Server struct {
	*httptest.Server

	Token string

	mu       sync.Mutex
	catalog  map[string]Product
	lines    []line
	nextID   int
	failing  map[string]int
	calls    []string
	omitSum  bool
	downHard bool
}

func NewServer(token string, products ...Product) *Server {
	s := &Server{
		Token:   token,
		catalog: make(map[string]Product),
		failing: make(map[string]int),
	}
	for _, p := range products {
		s.catalog[p.ID] = p
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// Seed puts productID into the cart and returns its cart item id.
func (s *Server) Seed(productID string, quantity int) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(productID, quantity)
}

// FailProduct makes mutations touching productID answer with status.
func (s *Server) FailProduct(productID string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing[productID] = status
}

// OmitSummary drops the summary object from responses.
func (s *Server) OmitSummary() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.omitSum = true
}

// FailAll makes every request answer 503.
func (s *Server) FailAll(down bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.downHard = down
}

// Calls returns "METHOD path" for every request received, in order.
func (s *Server) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

// Quantity returns the quantity of productID in the cart, or 0.
func (s *Server) Quantity(productID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.findProduct(productID); i >= 0 {
		return s.lines[i].quantity
	}
	return 0
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, r.Method+" "+r.URL.Path)

	if s.downHard {
		writeError(w, http.StatusServiceUnavailable, "maintenance")
		return
	}
	if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	itemID, hasItemID := strings.CutPrefix(r.URL.Path, "/cart/items/")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/cart":
		s.writeCart(w)
	case r.Method == http.MethodPost && r.URL.Path == "/cart/items":
		s.handleAdd(w, r)
	case r.Method == http.MethodPatch && hasItemID:
		s.handleUpdate(w, r, itemID)
	case r.Method == http.MethodDelete && hasItemID:
		i := s.findItem(itemID)
		if i < 0 {
			writeError(w, http.StatusNotFound, "cart item not found")
			return
		}
		if status, ok := s.failing[s.lines[i].productID]; ok {
			writeError(w, status, "injected failure")
			return
		}
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
		s.writeCart(w)
	case r.Method == http.MethodDelete && r.URL.Path == "/cart":
		s.lines = nil
		w.WriteHeader(http.StatusOK)
	default:
		writeError(w, http.StatusNotFound, "route not found")
	}
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" || req.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "productId and quantity >= 1 required")
		return
	}
	if status, ok := s.failing[req.ProductID]; ok {
		writeError(w, status, "injected failure")
		return
	}
	if _, ok := s.catalog[req.ProductID]; !ok {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	s.addLocked(req.ProductID, req.Quantity)
	s.writeCart(w)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request, itemID string) {
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity < 1 {
		writeError(w, http.StatusBadRequest, "quantity must be at least 1")
		return
	}
	i := s.findItem(itemID)
	if i < 0 {
		writeError(w, http.StatusNotFound, "cart item not found")
		return
	}
	if status, ok := s.failing[s.lines[i].productID]; ok {
		writeError(w, status, "injected failure")
		return
	}
	s.lines[i].quantity = req.Quantity
	s.writeCart(w)
}

func (s *Server) addLocked(productID string, quantity int) string {
	if i := s.findProduct(productID); i >= 0 {
		s.lines[i].quantity += quantity
		return s.lines[i].id
	}
	s.nextID++
	id := fmt.Sprintf("ci-%d", s.nextID)
	s.lines = append(s.lines, line{id: id, productID: productID, quantity: quantity})
	return id
}

func (s *Server) findItem(id string) int {
	for i := range s.lines {
		if s.lines[i].id == id {
			return i
		}
	}
	return -1
}

func (s *Server) findProduct(productID string) int {
	for i := range s.lines {
		if s.lines[i].productID == productID {
			return i
		}
	}
	return -1
}

func (s *Server) writeCart(w http.ResponseWriter) {
	items := make([]map[string]any, 0, len(s.lines))
	count := 0
	total := decimal.Zero
	for _, l := range s.lines {
		p := s.catalog[l.productID]
		items = append(items, map[string]any{
			"_id": l.id,
			"product": map[string]any{
				"_id":      p.ID,
				"name":     p.Name,
				"price":    p.Price,
				"images":   []map[string]string{{"url": p.Image}},
				"category": map[string]string{"name": p.Category},
			},
			"quantity": l.quantity,
		})
		count += l.quantity
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(l.quantity))))
	}

	body := map[string]any{"items": items}
	if !s.omitSum {
		body["summary"] = map[string]any{"itemCount": count, "total": total}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
