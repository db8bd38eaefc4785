package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/popspot-backend/api/middleware"
	"github.com/angelmondragon/popspot-backend/internal/auth"
	"github.com/angelmondragon/popspot-backend/internal/media"
	"github.com/angelmondragon/popspot-backend/internal/reviews"
	"github.com/angelmondragon/popspot-backend/internal/stores"
)

func withActor(r *http.Request, id uuid.UUID) *http.Request {
	return r.WithContext(middleware.WithUserID(r.Context(), id.String()))
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type stubStores struct {
	listParams stores.ListParams
	viewer     *uuid.UUID
	created    *stores.CreateStoreInput
	deleted    uuid.UUID
	err        error
}

func (s *stubStores) List(_ context.Context, params stores.ListParams) (*stores.ListResult, error) {
	s.listParams = params
	if s.err != nil {
		return nil, s.err
	}
	return &stores.ListResult{Stores: []stores.StoreDTO{}}, nil
}

func (s *stubStores) Get(_ context.Context, id uuid.UUID, viewer *uuid.UUID) (*stores.StoreDetailDTO, error) {
	s.viewer = viewer
	if s.err != nil {
		return nil, s.err
	}
	return &stores.StoreDetailDTO{StoreDTO: stores.StoreDTO{ID: id}}, nil
}

func (s *stubStores) ListMine(context.Context, uuid.UUID) ([]stores.StoreDTO, error) {
	return []stores.StoreDTO{}, s.err
}

func (s *stubStores) Create(_ context.Context, actor uuid.UUID, input stores.CreateStoreInput) (*stores.StoreDTO, error) {
	s.created = &input
	if s.err != nil {
		return nil, s.err
	}
	return &stores.StoreDTO{ID: uuid.New(), SellerID: actor, Name: input.Name}, nil
}

func (s *stubStores) Update(_ context.Context, actor, id uuid.UUID, input stores.UpdateStoreInput) (*stores.StoreDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &stores.StoreDTO{ID: id, SellerID: actor}, nil
}

func (s *stubStores) Delete(_ context.Context, _, id uuid.UUID) error {
	s.deleted = id
	return s.err
}

type stubReviews struct {
	params reviews.ListParams
	err    error
}

func (s *stubReviews) List(_ context.Context, _ uuid.UUID, params reviews.ListParams) (*reviews.ListResult, error) {
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return &reviews.ListResult{Reviews: []reviews.ReviewDTO{}}, nil
}

func (s *stubReviews) Rating(context.Context, uuid.UUID, *uuid.UUID) (*reviews.RatingSummary, error) {
	return &reviews.RatingSummary{Distribution: map[int]int64{}}, s.err
}

func (s *stubReviews) Mine(context.Context, uuid.UUID, uuid.UUID) (*reviews.ReviewDTO, error) {
	return nil, s.err
}

func (s *stubReviews) Create(_ context.Context, actor, storeID uuid.UUID, input reviews.CreateReviewInput) (*reviews.ReviewDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &reviews.ReviewDTO{ID: uuid.New(), StoreID: storeID, UserID: actor, Rating: input.Rating}, nil
}

func (s *stubReviews) Update(_ context.Context, actor, id uuid.UUID, _ reviews.UpdateReviewInput) (*reviews.ReviewDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &reviews.ReviewDTO{ID: id, UserID: actor}, nil
}

func (s *stubReviews) Delete(context.Context, uuid.UUID, uuid.UUID) error {
	return s.err
}

type stubAuth struct {
	session     *auth.Session
	signedOut   string
	kakaoURL    string
	kakaoState  string
	gotExpected string
	err         error
}

func (s *stubAuth) SignUp(_ context.Context, req auth.SignUpRequest) (*auth.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &auth.User{ID: uuid.New(), Email: req.Email}, nil
}

func (s *stubAuth) SignIn(context.Context, auth.SignInRequest) (*auth.Session, error) {
	return s.session, s.err
}

func (s *stubAuth) SignOut(_ context.Context, token string) error {
	s.signedOut = token
	return s.err
}

func (s *stubAuth) Refresh(context.Context, string, string) (*auth.Session, error) {
	return s.session, s.err
}

func (s *stubAuth) Session(_ context.Context, token string) (*auth.SessionState, error) {
	return &auth.SessionState{}, s.err
}

func (s *stubAuth) KakaoAuthURL(context.Context) (string, string, error) {
	return s.kakaoURL, s.kakaoState, s.err
}

func (s *stubAuth) KakaoCallback(_ context.Context, _, _, expected string) (*auth.Session, error) {
	s.gotExpected = expected
	return s.session, s.err
}

func (s *stubAuth) ResetPassword(context.Context, string) error { return s.err }

func (s *stubAuth) UpdatePassword(context.Context, auth.UpdatePasswordRequest) error { return s.err }

type stubMedia struct {
	req     media.UploadRequest
	bodies  []string
	deleted string
	err     error
}

func (s *stubMedia) NewBatch() *media.Batch { return nil }

func (s *stubMedia) Upload(_ context.Context, _ uuid.UUID, req media.UploadRequest) (*media.UploadResult, error) {
	s.req = req
	for _, f := range req.Files {
		buf := make([]byte, 64)
		n, _ := f.Body.Read(buf)
		s.bodies = append(s.bodies, string(buf[:n]))
	}
	if s.err != nil {
		return nil, s.err
	}
	return &media.UploadResult{URLs: req.Existing, MaxImages: 10}, nil
}

func (s *stubMedia) Delete(_ context.Context, _ uuid.UUID, rawURL string) error {
	s.deleted = rawURL
	return s.err
}

func (s *stubMedia) Limits() media.Limits {
	return media.Limits{MaxImages: 10, MaxFileBytes: 5 << 20}
}
