package common

import (
	"annopedia-backend/domain/annotator"
	"annopedia-backend/domain/project"
	"annopedia-backend/repository/metadata"
	"annopedia-backend/utils"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RequestContextKeyContributor = "contributor"
	RequestContextKeyAuthMethod  = "auth_method"

	// 只有通过 token 认证的私有标注员才有以下两项
	RequestContextKeyAnnotator = "private_annotator"
	RequestContextKeyProject   = "private_project"
)

const (
	AuthMethodBearer   = "bearer"
	AuthMethodToken    = "token"
	AuthMethodFallback = "fallback"
)

type AuthConfig struct {
	JWTSecret string
}

// Claims 身份提供方签发的 JWT，Subject 为账号的用户名。
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// IssueToken 用 HS256 签发 JWT，用于本地调试与测试。
func IssueToken(secret, username, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return "", utils.WrapError(err, "sign token fail")
	}
	return token, nil
}

func parseBearer(secret, tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || len(claims.Subject) == 0 {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

/*
Authenticate 依次尝试三种认证方式，第一种匹配的生效：

	Authorization: Bearer <jwt>，JWT 无效时 401；
	查询参数 token，匹配启用中的私有标注员，不匹配时 401；
	以来源地址为用户名的匿名账号。

认证后的账号通过 CurrentContributor 取得。
*/
func Authenticate(config *AuthConfig) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if header := ctx.GetHeader("Authorization"); len(header) != 0 {
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				RespondError(ctx, project.Unauthorized("Authorization header format must be Bearer <token>"))
				return
			}

			claims, err := parseBearer(config.JWTSecret, parts[1])
			if err != nil {
				RespondError(ctx, project.Unauthorized("Invalid bearer token"))
				return
			}

			contributor, err := annotator.ResolveContributor(ctx.Request.Context(), claims.Subject, claims.Email)
			if err != nil {
				RespondError(ctx, err)
				return
			}
			ctx.Set(RequestContextKeyContributor, contributor)
			ctx.Set(RequestContextKeyAuthMethod, AuthMethodBearer)
			ctx.Next()
			return
		}

		if token, ok := ctx.GetQuery("token"); ok {
			privateAnnotator, contributor, p, err := annotator.FindByToken(ctx.Request.Context(), token)
			if err != nil {
				RespondError(ctx, err)
				return
			}
			ctx.Set(RequestContextKeyContributor, contributor)
			ctx.Set(RequestContextKeyAnnotator, privateAnnotator)
			ctx.Set(RequestContextKeyProject, p)
			ctx.Set(RequestContextKeyAuthMethod, AuthMethodToken)
			ctx.Next()
			return
		}

		contributor, err := annotator.ResolveContributor(ctx.Request.Context(), ctx.ClientIP(), annotator.AnonymousEmail)
		if err != nil {
			RespondError(ctx, err)
			return
		}
		ctx.Set(RequestContextKeyContributor, contributor)
		ctx.Set(RequestContextKeyAuthMethod, AuthMethodFallback)
		ctx.Next()
	}
}

func CurrentContributor(ctx *gin.Context) *metadata.Contributor {
	v, ok := ctx.Get(RequestContextKeyContributor)
	if !ok {
		return nil
	}
	contributor, _ := v.(*metadata.Contributor)
	return contributor
}

// CurrentPrivateAnnotator 返回通过 token 认证的私有标注员及其项目。
func CurrentPrivateAnnotator(ctx *gin.Context) (*metadata.Annotator, *metadata.Project, bool) {
	a, ok := ctx.Get(RequestContextKeyAnnotator)
	if !ok {
		return nil, nil, false
	}
	p, ok := ctx.Get(RequestContextKeyProject)
	if !ok {
		return nil, nil, false
	}
	privateAnnotator, ok1 := a.(*metadata.Annotator)
	owner, ok2 := p.(*metadata.Project)
	return privateAnnotator, owner, ok1 && ok2
}

// RequirePrivateAnnotator 拒绝没有通过 token 认证的请求。
func RequirePrivateAnnotator(ctx *gin.Context) {
	if _, _, ok := CurrentPrivateAnnotator(ctx); !ok {
		RespondError(ctx, project.Unauthorized("Missing annotation token"))
		return
	}
	ctx.Next()
}
