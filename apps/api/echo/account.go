package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core"
	"github.com/trezcool/admissions/core/account"
)

type accountApi struct {
	svc      *account.Service
	auth     *Auth
	validate *validator.Validate
}

func registerAccountAPI(g *echo.Group, auth *Auth, svc *account.Service, validate *validator.Validate) {
	api := accountApi{
		svc:      svc,
		auth:     auth,
		validate: validate,
	}
	jwt := auth.Middleware()

	g.POST("/token-refresh", api.refreshToken, jwt)

	for _, v := range []account.Variant{account.VariantStudent, account.VariantTeacher} {
		vg := g.Group("/" + string(v) + "s")

		// un-authed endpoints
		vg.POST("/signup", api.signUp(v))
		vg.POST("/signin", api.signIn(v))

		// authed endpoints
		ag := vg.Group("", jwt)
		ag.GET("/me", api.retrieveOwn(v))
		ag.PATCH("/me", api.updateOwn(v))
		ag.DELETE("/me", api.destroyOwn(v))
		ag.PATCH("", api.adminUpdate(v), adminMiddleware())
		ag.PATCH("/approve", api.approve(v))
	}
	g.PATCH("/students/assign-teacher", api.assignTeacher, jwt)

	adg := g.Group("/admins")
	adg.POST("/signin", api.signIn(account.VariantAdmin))
	adg.GET("/pending", api.queryPending, jwt, adminMiddleware())
}

// Handlers

func (api *accountApi) signUp(v account.Variant) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data account.NewAccount
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to NewAccount")
		}
		rctx := ctx.Request().Context()
		if err := data.Validate(rctx, api.validate, api.svc, v); err != nil {
			return err
		}

		acc, err := api.svc.Register(rctx, v, data)
		if err != nil {
			return errors.Wrap(err, "registering account")
		}
		return ctx.JSON(http.StatusCreated, acc)
	}
}

func (api *accountApi) signIn(v account.Variant) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		var data SignInRequest
		if err := ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to SignInRequest")
		}
		if err := data.Validate(api.validate); err != nil {
			return err
		}

		acc, err := api.svc.SignIn(ctx.Request().Context(), v, data.Email, data.Password)
		if err != nil {
			return errors.Wrap(err, "signing in")
		}
		claims := api.auth.Claims(acc)
		token, err := api.auth.GenerateToken(claims)
		if err != nil {
			return errors.Wrap(err, "generating token")
		}

		return ctx.JSON(http.StatusOK, SignInResponse{
			Token:         token,
			Role:          claims.Role,
			Notifications: acc.Notifications,
		})
	}
}

func (api *accountApi) refreshToken(ctx echo.Context) error {
	token, err := api.auth.refresh(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "refreshing token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{Token: token})
}

func (api *accountApi) retrieveOwn(v account.Variant) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		actor, err := getContextActor(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context actor")
		}
		acc, err := api.svc.GetOwn(ctx.Request().Context(), actor, v)
		if err != nil {
			return errors.Wrap(err, "retrieving own account")
		}
		return ctx.JSON(http.StatusOK, acc)
	}
}

func (api *accountApi) updateOwn(v account.Variant) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		actor, err := getContextActor(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context actor")
		}
		var data account.Patch
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to Patch")
		}
		return api.update(ctx, actor, v, "", data)
	}
}

func (api *accountApi) adminUpdate(v account.Variant) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		actor, err := getContextActor(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context actor")
		}
		var data AdminEditRequest
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to AdminEditRequest")
		}
		email := core.CleanString(data.Email, true /* lower */)
		if email == "" {
			return core.NewValidationError(nil, core.FieldError{Field: "email", Error: "email is a required field"})
		}
		return api.update(ctx, actor, v, email, data.Patch)
	}
}

func (api *accountApi) update(ctx echo.Context, actor account.Actor, v account.Variant, email string, data account.Patch) error {
	if err := data.Validate(api.validate); err != nil {
		return err
	}
	if _, err := api.svc.Edit(ctx.Request().Context(), actor, v, email, data); err != nil {
		return errors.Wrap(err, "updating account")
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: account.MsgEditDone})
}

func (api *accountApi) destroyOwn(v account.Variant) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		actor, err := getContextActor(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context actor")
		}
		if err = api.svc.DeleteOwn(ctx.Request().Context(), actor, v); err != nil {
			return errors.Wrap(err, "deleting own account")
		}

		msg := account.MsgStudentDeleted
		if v == account.VariantTeacher {
			msg = account.MsgTeacherDeleted
		}
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: msg})
	}
}

func (api *accountApi) approve(v account.Variant) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		actor, err := getContextActor(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context actor")
		}
		var data EmailRequest
		if err = ctx.Bind(&data); err != nil {
			return errors.Wrap(err, "binding to EmailRequest")
		}

		rctx := ctx.Request().Context()
		msg := account.MsgStudentApproved
		if v == account.VariantTeacher {
			msg = account.MsgTeacherApproved
			_, err = api.svc.ApproveTeacher(rctx, actor, data.Email)
		} else {
			_, err = api.svc.ApproveStudent(rctx, actor, data.Email)
		}
		if err != nil {
			return errors.Wrapf(err, "approving %s", v)
		}
		return ctx.JSON(http.StatusOK, SuccessResponse{Success: msg})
	}
}

func (api *accountApi) assignTeacher(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	var data AssignTeacherRequest
	if err = ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignTeacherRequest")
	}

	res, err := api.svc.AssignTeacher(ctx.Request().Context(), actor, data.Email, data.TeacherEmail)
	if err != nil {
		return errors.Wrap(err, "assigning teacher")
	}
	return ctx.JSON(http.StatusOK, AssignTeacherResponse{
		SuccessResponse: SuccessResponse{Success: account.MsgTeacherAssigned},
		TeacherFound:    res.TeacherFound,
	})
}

func (api *accountApi) queryPending(ctx echo.Context) error {
	actor, err := getContextActor(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context actor")
	}
	pending, err := api.svc.PendingFor(ctx.Request().Context(), actor)
	if err != nil {
		return errors.Wrap(err, "listing pending accounts")
	}
	if pending == nil {
		pending = []account.Pending{}
	}
	return ctx.JSON(http.StatusOK, pending)
}

type (
	SignInRequest struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	SignInResponse struct {
		Token         string       `json:"token"`
		Role          account.Role `json:"role"`
		Notifications []string     `json:"notifications"`
	}

	TokenResponse struct {
		Token string `json:"token"`
	}

	EmailRequest struct {
		Email string `json:"email"`
	}

	AdminEditRequest struct {
		Email string `json:"email"`
		account.Patch
	}

	AssignTeacherRequest struct {
		Email        string `json:"email"`
		TeacherEmail string `json:"teacher_email"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}

	AssignTeacherResponse struct {
		SuccessResponse
		TeacherFound bool `json:"teacher_found"`
	}
)

func (sr *SignInRequest) Validate(validate *validator.Validate) error {
	sr.Email = core.CleanString(sr.Email, true /* lower */)
	return validate.Struct(sr)
}
