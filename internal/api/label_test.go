package api

import (
	"fmt"
	"net/http"
	"testing"

	"recipe_api/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// labelFixture lets each test run against ingredients and tags alike
type labelFixture struct {
	kind   string
	url    string
	create func(env *testEnv, user *domain.User, name string) domain.Label
	attach func(env *testEnv, user *domain.User, title string, labels ...domain.Label) domain.Recipe
}

var labelFixtures = []labelFixture{
	{
		kind: "ingredients",
		url:  "/recipe/ingredients",
		create: func(env *testEnv, user *domain.User, name string) domain.Label {
			return env.createIngredient(user, name).Label
		},
		attach: func(env *testEnv, user *domain.User, title string, labels ...domain.Label) domain.Recipe {
			ings := make([]domain.Ingredient, len(labels))
			for i, l := range labels {
				ings[i] = domain.Ingredient{Label: l}
			}
			return env.createRecipe(user, title, ings, nil)
		},
	},
	{
		kind: "tags",
		url:  "/recipe/tags",
		create: func(env *testEnv, user *domain.User, name string) domain.Label {
			return env.createTag(user, name).Label
		},
		attach: func(env *testEnv, user *domain.User, title string, labels ...domain.Label) domain.Recipe {
			tags := make([]domain.Tag, len(labels))
			for i, l := range labels {
				tags[i] = domain.Tag{Label: l}
			}
			return env.createRecipe(user, title, nil, tags)
		},
	},
}

func forEachLabel(t *testing.T, fn func(t *testing.T, f labelFixture)) {
	for _, f := range labelFixtures {
		t.Run(f.kind, func(t *testing.T) { fn(t, f) })
	}
}

func TestLabelsLoginRequired(t *testing.T) {
	forEachLabel(t, func(t *testing.T, f labelFixture) {
		env := newTestEnv(t)
		assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodGet, f.url, nil, "").Code)
		assert.Equal(t, http.StatusUnauthorized, env.do(http.MethodPost, f.url, map[string]string{"name": "x"}, "").Code)
	})
}

func TestRetrieveLabelList(t *testing.T) {
	forEachLabel(t, func(t *testing.T, f labelFixture) {
		env := newTestEnv(t)
		user := env.createUser(testEmail, testPassword, testName)
		kale := f.create(env, user, "Kale")
		salt := f.create(env, user, "Salt")

		rec := env.do(http.MethodGet, f.url, nil, env.token(user))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, []domain.Label{{ID: salt.ID, Name: "Salt"}, {ID: kale.ID, Name: "Kale"}},
			decode[[]domain.Label](t, rec))
	})
}

func TestLabelsLimitedToUser(t *testing.T) {
	forEachLabel(t, func(t *testing.T, f labelFixture) {
		env := newTestEnv(t)
		user := env.createUser(testEmail, testPassword, testName)
		other := env.createUser("test1@example.com", "testpass", "Other")
		f.create(env, other, "Vinegar")
		own := f.create(env, user, "Tumeric")

		rec := env.do(http.MethodGet, f.url, nil, env.token(user))

		require.Equal(t, http.StatusOK, rec.Code)
		labels := decode[[]domain.Label](t, rec)
		require.Len(t, labels, 1)
		assert.Equal(t, own.Name, labels[0].Name)
	})
}

func TestEmptyLabelListIsArray(t *testing.T) {
	forEachLabel(t, func(t *testing.T, f labelFixture) {
		env := newTestEnv(t)
		user := env.createUser(testEmail, testPassword, testName)

		rec := env.do(http.MethodGet, f.url, nil, env.token(user))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestCreateLabelSuccessful(t *testing.T) {
	forEachLabel(t, func(t *testing.T, f labelFixture) {
		env := newTestEnv(t)
		user := env.createUser(testEmail, testPassword, testName)

		rec := env.do(http.MethodPost, f.url, map[string]string{"name": "Cabbage"}, env.token(user))

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Equal(t, "Cabbage", decode[domain.Label](t, rec).Name)
		var count int64
		require.NoError(t, env.db.Table(f.kind).Where("user_id = ? AND name = ?", user.ID, "Cabbage").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}

func TestCreateLabelInvalid(t *testing.T) {
	forEachLabel(t, func(t *testing.T, f labelFixture) {
		env := newTestEnv(t)
		user := env.createUser(testEmail, testPassword, testName)

		for _, name := range []string{"", "   "} {
			rec := env.do(http.MethodPost, f.url, map[string]string{"name": name}, env.token(user))
			assert.Equal(t, http.StatusBadRequest, rec.Code, "name %q", name)
		}
	})
}

func TestRetrieveLabelsAssignedToRecipes(t *testing.T) {
	forEachLabel(t, func(t *testing.T, f labelFixture) {
		env := newTestEnv(t)
		user := env.createUser(testEmail, testPassword, testName)
		apples := f.create(env, user, "Apples")
		turkey := f.create(env, user, "Turkey")
		f.attach(env, user, "Eggs and apples", apples)

		rec := env.do(http.MethodGet, f.url+"?assigned_only=1", nil, env.token(user))

		require.Equal(t, http.StatusOK, rec.Code)
		labels := decode[[]domain.Label](t, rec)
		assert.Contains(t, labels, domain.Label{ID: apples.ID, Name: "Apples"})
		assert.NotContains(t, labels, domain.Label{ID: turkey.ID, Name: "Turkey"})
	})
}

func TestRetrieveLabelsAssignedUnique(t *testing.T) {
	forEachLabel(t, func(t *testing.T, f labelFixture) {
		env := newTestEnv(t)
		user := env.createUser(testEmail, testPassword, testName)
		apples := f.create(env, user, "Apples")
		f.create(env, user, "Turkey")
		f.attach(env, user, "Apple pie", apples)
		f.attach(env, user, "Cherries and lemon pie", apples)

		rec := env.do(http.MethodGet, f.url+"?assigned_only=1", nil, env.token(user))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]domain.Label](t, rec), 1)
	})
}

func TestAssignedOnlyZeroReturnsAll(t *testing.T) {
	forEachLabel(t, func(t *testing.T, f labelFixture) {
		env := newTestEnv(t)
		user := env.createUser(testEmail, testPassword, testName)
		f.create(env, user, "Apples")
		f.create(env, user, "Turkey")

		rec := env.do(http.MethodGet, f.url+"?assigned_only=0", nil, env.token(user))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]domain.Label](t, rec), 2)
	})
}

func TestAssignedOnlyRejectsNonInteger(t *testing.T) {
	forEachLabel(t, func(t *testing.T, f labelFixture) {
		env := newTestEnv(t)
		user := env.createUser(testEmail, testPassword, testName)

		rec := env.do(http.MethodGet, f.url+"?assigned_only=yes", nil, env.token(user))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLabelDetailIsOwnerScoped(t *testing.T) {
	forEachLabel(t, func(t *testing.T, f labelFixture) {
		env := newTestEnv(t)
		user := env.createUser(testEmail, testPassword, testName)
		other := env.createUser("test1@example.com", "testpass", "Other")
		own := f.create(env, user, "Mine")
		foreign := f.create(env, other, "Theirs")
		token := env.token(user)

		rec := env.do(http.MethodGet, fmt.Sprintf("%s/%d", f.url, own.ID), nil, token)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Mine", decode[domain.Label](t, rec).Name)

		for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
			rec := env.do(method, fmt.Sprintf("%s/%d", f.url, foreign.ID), map[string]string{"name": "Hijacked"}, token)
			assert.Equal(t, http.StatusNotFound, rec.Code, method)
		}
		assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, f.url+"/abc", nil, token).Code)
	})
}

func TestUpdateLabel(t *testing.T) {
	forEachLabel(t, func(t *testing.T, f labelFixture) {
		env := newTestEnv(t)
		user := env.createUser(testEmail, testPassword, testName)
		label := f.create(env, user, "Old")

		rec := env.do(http.MethodPatch, fmt.Sprintf("%s/%d", f.url, label.ID), map[string]string{"name": "New"}, env.token(user))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, domain.Label{ID: label.ID, Name: "New"}, decode[domain.Label](t, rec))
		var stored domain.Label
		require.NoError(t, env.db.Table(f.kind).First(&stored, label.ID).Error)
		assert.Equal(t, "New", stored.Name)
	})
}

func TestDeleteLabelDetachesFromRecipes(t *testing.T) {
	forEachLabel(t, func(t *testing.T, f labelFixture) {
		env := newTestEnv(t)
		user := env.createUser(testEmail, testPassword, testName)
		label := f.create(env, user, "Doomed")
		recipe := f.attach(env, user, "Soup", label)
		token := env.token(user)

		rec := env.do(http.MethodDelete, fmt.Sprintf("%s/%d", f.url, label.ID), nil, token)
		require.Equal(t, http.StatusNoContent, rec.Code)

		detail := decode[RecipeDetailResponse](t, env.do(http.MethodGet, recipeURL(recipe.ID), nil, token))
		assert.Empty(t, detail.Ingredients)
		assert.Empty(t, detail.Tags)
		assert.JSONEq(t, `[]`, env.do(http.MethodGet, f.url, nil, token).Body.String())
	})
}

func TestLabelListCacheInvalidatedOnWrite(t *testing.T) {
	forEachLabel(t, func(t *testing.T, f labelFixture) {
		env := newTestEnv(t)
		user := env.createUser(testEmail, testPassword, testName)
		token := env.token(user)

		first := env.do(http.MethodGet, f.url, nil, token)
		assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
		second := env.do(http.MethodGet, f.url, nil, token)
		assert.Equal(t, "HIT", second.Header().Get("X-Cache"))

		require.Equal(t, http.StatusCreated, env.do(http.MethodPost, f.url, map[string]string{"name": "Fresh"}, token).Code)

		third := env.do(http.MethodGet, f.url, nil, token)
		assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
		assert.Len(t, decode[[]domain.Label](t, third), 1)
	})
}
