package main

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"gitea.kood.tech/petrkubec/linkvibez/internal/model"
	"gitea.kood.tech/petrkubec/linkvibez/internal/store"
)

// GET /matches
// People the viewer liked, newest first. "mutual" marks those who liked back;
// a match overlay alone never implies it.
func matchesHandler(a *app) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		me, _ := userIDFromContext(r.Context())
		loaders := GetDataLoadersFromContext(r.Context())
		if loaders == nil {
			loaders = NewDataLoaders(a.profiles, a.likes, me)
		}

		ids, err := a.likes.Matches(r.Context(), me)
		if err != nil {
			a.log.Error("list matches", zap.Int("user_id", me), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "db_error")
			return
		}

		profileThunk := loaders.ProfileLoader.LoadMany(r.Context(), ids)
		likedThunk := loaders.LikedBackLoader.LoadMany(r.Context(), ids)
		profiles, profileErrs := profileThunk()
		likedBack, likedErrs := likedThunk()

		out := make([]model.MatchedProfile, 0, len(ids))
		for i := range ids {
			if err := errAt(profileErrs, i); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					continue
				}
				a.log.Error("load matched profile", zap.Int("profile_id", ids[i]), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "db_error")
				return
			}
			mutual := false
			if errAt(likedErrs, i) == nil {
				mutual = likedBack[i]
			}
			out = append(out, model.MatchedProfile{Profile: profiles[i], Mutual: mutual})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func errAt(errs []error, i int) error {
	if i < len(errs) {
		return errs[i]
	}
	return nil
}
