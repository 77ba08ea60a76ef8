package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablewise/restaurant-api/internal/auth"
	"github.com/tablewise/restaurant-api/internal/database"
	"github.com/tablewise/restaurant-api/internal/handler"
	"github.com/tablewise/restaurant-api/internal/middleware"
)

// --- Mock store ---

type mockDishIngredientStore struct {
	dishes      map[uuid.UUID]string
	ingredients map[uuid.UUID]string
	links       map[uuid.UUID]database.DishIngredient
	lastList    database.ListDishIngredientsParams

	// beforeWrite runs at the start of CreateDishIngredient and
	// UpdateDishIngredient.
	beforeWrite func()
}

// activePair mirrors the share-locked pair lookup of the write queries.
func (m *mockDishIngredientStore) activePair(dishID, ingredientID uuid.UUID) bool {
	if m.beforeWrite != nil {
		m.beforeWrite()
	}
	_, dishOK := m.dishes[dishID]
	_, ingOK := m.ingredients[ingredientID]
	return dishOK && ingOK
}

func newMockDishIngredientStore() *mockDishIngredientStore {
	return &mockDishIngredientStore{
		dishes:      make(map[uuid.UUID]string),
		ingredients: make(map[uuid.UUID]string),
		links:       make(map[uuid.UUID]database.DishIngredient),
	}
}

func (m *mockDishIngredientStore) ListDishIngredients(_ context.Context, arg database.ListDishIngredientsParams) ([]database.DishIngredient, int64, error) {
	m.lastList = arg
	var out []database.DishIngredient
	for _, l := range m.links {
		if arg.DishID.Valid && l.DishID != uuid.UUID(arg.DishID.Bytes) {
			continue
		}
		out = append(out, l)
	}
	return out, int64(len(out)), nil
}

func (m *mockDishIngredientStore) GetDishIngredient(_ context.Context, id uuid.UUID) (database.DishIngredient, error) {
	l, ok := m.links[id]
	if !ok {
		return database.DishIngredient{}, pgx.ErrNoRows
	}
	return l, nil
}

func (m *mockDishIngredientStore) DishIngredientExists(_ context.Context, arg database.DishIngredientExistsParams) (bool, error) {
	for id, l := range m.links {
		if id != arg.ExcludeID && l.DishID == arg.DishID && l.IngredientID == arg.IngredientID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDishIngredientStore) GetDish(_ context.Context, id uuid.UUID) (database.Dish, error) {
	name, ok := m.dishes[id]
	if !ok {
		return database.Dish{}, pgx.ErrNoRows
	}
	return database.Dish{ID: id, Name: name}, nil
}

func (m *mockDishIngredientStore) GetIngredient(_ context.Context, id uuid.UUID) (database.Ingredient, error) {
	name, ok := m.ingredients[id]
	if !ok {
		return database.Ingredient{}, pgx.ErrNoRows
	}
	return database.Ingredient{ID: id, Name: name}, nil
}

func (m *mockDishIngredientStore) CreateDishIngredient(_ context.Context, arg database.CreateDishIngredientParams) (database.DishIngredient, error) {
	if !m.activePair(arg.DishID, arg.IngredientID) {
		return database.DishIngredient{}, pgx.ErrNoRows
	}
	l := database.DishIngredient{
		ID:             uuid.New(),
		DishID:         arg.DishID,
		DishName:       m.dishes[arg.DishID],
		IngredientID:   arg.IngredientID,
		IngredientName: m.ingredients[arg.IngredientID],
		Quantity:       arg.Quantity,
		Notes:          arg.Notes,
		CreatedAt:      time.Now(),
	}
	m.links[l.ID] = l
	return l, nil
}

func (m *mockDishIngredientStore) UpdateDishIngredient(_ context.Context, arg database.UpdateDishIngredientParams) (database.DishIngredient, error) {
	if !m.activePair(arg.DishID, arg.IngredientID) {
		return database.DishIngredient{}, pgx.ErrNoRows
	}
	l, ok := m.links[arg.ID]
	if !ok {
		return database.DishIngredient{}, pgx.ErrNoRows
	}
	l.DishID, l.IngredientID, l.Quantity, l.Notes = arg.DishID, arg.IngredientID, arg.Quantity, arg.Notes
	m.links[arg.ID] = l
	return l, nil
}

func (m *mockDishIngredientStore) SoftDeleteDishIngredient(_ context.Context, arg database.SoftDeleteParams) (uuid.UUID, error) {
	if _, ok := m.links[arg.ID]; !ok {
		return uuid.Nil, pgx.ErrNoRows
	}
	delete(m.links, arg.ID)
	return arg.ID, nil
}

// --- Helpers ---

func setupDishIngredientRouter(store *mockDishIngredientStore) *chi.Mux {
	h := handler.NewDishIngredientHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.OptionalAuthenticate(testJWTSecret))
	r.Route("/dish-ingredients", func(r chi.Router) {
		h.RegisterReadRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Require(auth.CapCatalogWrite))
			h.RegisterWriteRoutes(r)
		})
	})
	return r
}

// --- Tests ---

func TestDishIngredients_CreateAndList(t *testing.T) {
	store := newMockDishIngredientStore()
	dishID, ingID := uuid.New(), uuid.New()
	store.dishes[dishID] = "Pho"
	store.ingredients[ingID] = "Basil"
	router := setupDishIngredientRouter(store)

	rr := doAuthRequest(t, router, http.MethodPost, "/dish-ingredients", map[string]interface{}{
		"dishId": dishID.String(), "ingredientId": ingID.String(), "quantity": "1 handful",
	}, adminClaims())
	assertStatus(t, rr, http.StatusCreated)

	resp := decodeMap(t, rr)
	if resp["dishName"] != "Pho" || resp["ingredientName"] != "Basil" || resp["quantity"] != "1 handful" {
		t.Errorf("response: got %v", resp)
	}

	rr = doRequest(t, router, http.MethodGet, "/dish-ingredients?dishId="+dishID.String(), nil)
	assertStatus(t, rr, http.StatusOK)
	if data, _ := decodePage(t, rr); len(data) != 1 {
		t.Errorf("list: got %d rows, want 1", len(data))
	}
	if uuid.UUID(store.lastList.DishID.Bytes) != dishID {
		t.Error("dishId filter not passed to store")
	}
}

func TestDishIngredients_RejectsDuplicatePair(t *testing.T) {
	store := newMockDishIngredientStore()
	dishID, ingID := uuid.New(), uuid.New()
	store.dishes[dishID] = "Pho"
	store.ingredients[ingID] = "Basil"
	existing := uuid.New()
	store.links[existing] = database.DishIngredient{ID: existing, DishID: dishID, IngredientID: ingID}
	router := setupDishIngredientRouter(store)

	body := map[string]interface{}{"dishId": dishID.String(), "ingredientId": ingID.String()}
	rr := doAuthRequest(t, router, http.MethodPost, "/dish-ingredients", body, adminClaims())
	assertStatus(t, rr, http.StatusBadRequest)
	assertError(t, rr, "ingredient is already linked to this dish")

	// Re-saving the same row is not a duplicate of itself.
	rr = doAuthRequest(t, router, http.MethodPut, "/dish-ingredients/"+existing.String(), body, adminClaims())
	assertStatus(t, rr, http.StatusOK)
}

func TestDishIngredients_Validation(t *testing.T) {
	store := newMockDishIngredientStore()
	dishID := uuid.New()
	store.dishes[dishID] = "Pho"
	router := setupDishIngredientRouter(store)

	tests := []struct {
		name string
		body map[string]interface{}
		want string
	}{
		{"bad dish id", map[string]interface{}{"dishId": "x", "ingredientId": uuid.NewString()}, "invalid dishId"},
		{"unknown dish", map[string]interface{}{"dishId": uuid.NewString(), "ingredientId": uuid.NewString()}, "dish not found"},
		{"unknown ingredient", map[string]interface{}{"dishId": dishID.String(), "ingredientId": uuid.NewString()}, "ingredient not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthRequest(t, router, http.MethodPost, "/dish-ingredients", tt.body, adminClaims())
			assertStatus(t, rr, http.StatusBadRequest)
			assertError(t, rr, tt.want)
		})
	}

	rr := doRequest(t, router, http.MethodGet, "/dish-ingredients?ingredientId=nope", nil)
	assertStatus(t, rr, http.StatusBadRequest)
	assertError(t, rr, "invalid ingredientId")
}

func TestDishIngredients_DeleteNeedsCatalogWrite(t *testing.T) {
	store := newMockDishIngredientStore()
	id := uuid.New()
	store.links[id] = database.DishIngredient{ID: id}
	router := setupDishIngredientRouter(store)

	rr := doAuthRequest(t, router, http.MethodDelete, "/dish-ingredients/"+id.String(), nil, waiterClaims())
	assertStatus(t, rr, http.StatusForbidden)

	rr = doAuthRequest(t, router, http.MethodDelete, "/dish-ingredients/"+id.String(), nil, adminClaims())
	assertStatus(t, rr, http.StatusNoContent)

	rr = doAuthRequest(t, router, http.MethodDelete, "/dish-ingredients/"+id.String(), nil, adminClaims())
	assertStatus(t, rr, http.StatusNotFound)
}

func TestDishIngredients_IngredientDeletedBeforeInsert(t *testing.T) {
	store := newMockDishIngredientStore()
	dishID, ingID := uuid.New(), uuid.New()
	store.dishes[dishID] = "Pho"
	store.ingredients[ingID] = "Basil"
	store.beforeWrite = func() { delete(store.ingredients, ingID) }
	router := setupDishIngredientRouter(store)

	rr := doAuthRequest(t, router, http.MethodPost, "/dish-ingredients", map[string]interface{}{
		"dishId": dishID.String(), "ingredientId": ingID.String(),
	}, adminClaims())
	assertStatus(t, rr, http.StatusBadRequest)
	assertError(t, rr, "ingredient not found")
	if len(store.links) != 0 {
		t.Errorf("no link should be stored, got %d", len(store.links))
	}
}

func TestDishIngredients_DishDeletedBeforeUpdate(t *testing.T) {
	store := newMockDishIngredientStore()
	dishID, ingID := uuid.New(), uuid.New()
	store.dishes[dishID] = "Pho"
	store.ingredients[ingID] = "Basil"
	linkID := uuid.New()
	store.links[linkID] = database.DishIngredient{ID: linkID, DishID: dishID, IngredientID: ingID}
	store.beforeWrite = func() { delete(store.dishes, dishID) }
	router := setupDishIngredientRouter(store)

	rr := doAuthRequest(t, router, http.MethodPut, "/dish-ingredients/"+linkID.String(), map[string]interface{}{
		"dishId": dishID.String(), "ingredientId": ingID.String(), "quantity": "2 leaves",
	}, adminClaims())
	assertStatus(t, rr, http.StatusBadRequest)
	assertError(t, rr, "dish not found")
	if store.links[linkID].Quantity.Valid {
		t.Error("link should be unchanged")
	}
}
