// Package network - tournament.go
// REST surface of the chat drinking contest.
package network

import (
	"net/http"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin"

	"github.com/MRamiBalles/BeerClicker/server/internal/domain/tournament"
	"github.com/MRamiBalles/BeerClicker/server/internal/infra/storage"
	"github.com/MRamiBalles/BeerClicker/server/internal/platform/logger"
)

// AdminHeader carries the id of the player performing an admin action.
const AdminHeader = "X-Player-ID"

// TournamentHandler serves /api/tournament.
type TournamentHandler struct {
	contest Contest
	logger  *logger.Logger
}

// NewTournamentHandler creates the handler. contest may be nil when the
// storage driver cannot host players; every route then answers 501.
func NewTournamentHandler(contest Contest, log *logger.Logger) *TournamentHandler {
	return &TournamentHandler{contest: contest, logger: log}
}

func (th *TournamentHandler) register(rg *gin.RouterGroup) {
	g := rg.Group("/tournament", th.requireContest)
	{
		g.POST("/players", th.join)
		g.GET("/players/:id", th.player)
		g.POST("/players/:id/drink", th.drink)
		g.POST("/players/:id/buy", th.buy)
		g.GET("/shop", th.shop)
		g.GET("/top", th.top)

		admin := g.Group("/admin")
		admin.GET("/stats", th.stats)
		admin.POST("/players/:id/grant", th.grant)
		admin.POST("/players/:id/reset", th.resetPlayer)
	}
}

func (th *TournamentHandler) requireContest(c *gin.Context) {
	if th.contest == nil {
		c.AbortWithStatusJSON(http.StatusNotImplemented, gin.H{"error": "the tournament is not enabled for this storage driver"})
		return
	}
	c.Next()
}

type joinRequest struct {
	ID     int64  `json:"id" binding:"required"`
	Name   string `json:"name" binding:"required,max=64"`
	ChatID int64  `json:"chatId"`
}

func (th *TournamentHandler) join(c *gin.Context) {
	var req joinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid"})
		return
	}
	p, created, err := th.contest.Join(actionContext(c), tournament.Profile{ID: req.ID, Name: req.Name, ChatID: req.ChatID})
	if err != nil {
		th.fail(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, p)
}

func (th *TournamentHandler) player(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := th.contest.Player(c.Request.Context(), id)
	if err != nil {
		th.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (th *TournamentHandler) drink(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	res, err := th.contest.Drink(actionContext(c), id)
	if err != nil {
		th.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"drink":   res.Drink,
		"player":  res.Player,
		"message": "You drank " + humanize.Comma(int64(res.Drink.AmountMl)) + " ml.",
	})
}

func (th *TournamentHandler) shop(c *gin.Context) {
	c.JSON(http.StatusOK, th.contest.Shop())
}

type buyPackRequest struct {
	Pack string `json:"pack" binding:"required"`
}

func (th *TournamentHandler) buy(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req buyPackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid"})
		return
	}
	p, pack, err := th.contest.BuyPack(actionContext(c), id, req.Pack)
	if err != nil {
		th.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"player": p, "pack": pack})
}

type topQuery struct {
	ChatID int64 `form:"chat_id"`
}

func (th *TournamentHandler) top(c *gin.Context) {
	var q topQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid"})
		return
	}
	standings, err := th.contest.Leaderboard(c.Request.Context(), q.ChatID)
	if err != nil {
		th.fail(c, err)
		return
	}
	if standings == nil {
		standings = []tournament.Standing{}
	}
	scope := "global"
	if q.ChatID != storage.GlobalChat {
		scope = "chat"
	}
	c.JSON(http.StatusOK, gin.H{"scope": scope, "chat_id": q.ChatID, "standings": standings})
}

func (th *TournamentHandler) stats(c *gin.Context) {
	admin, ok := adminID(c)
	if !ok {
		return
	}
	totals, err := th.contest.Stats(c.Request.Context(), admin)
	if err != nil {
		th.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"players":  totals.Players,
		"total_ml": totals.TotalMl,
		"litres":   totals.Litres(),
		"summary":  humanize.Comma(totals.TotalMl) + " ml (" + humanize.FtoaWithDigits(totals.Litres(), 1) + " l)",
	})
}

type grantRequest struct {
	Attempts int `json:"attempts" binding:"omitempty,min=1,max=1000"`
}

func (th *TournamentHandler) grant(c *gin.Context) {
	admin, ok := adminID(c)
	if !ok {
		return
	}
	target, ok := pathID(c)
	if !ok {
		return
	}
	var req grantRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid"})
			return
		}
	}
	if req.Attempts == 0 {
		req.Attempts = tournament.AdminGrant
	}
	p, err := th.contest.Grant(actionContext(c), admin, target, req.Attempts)
	if err != nil {
		th.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (th *TournamentHandler) resetPlayer(c *gin.Context) {
	admin, ok := adminID(c)
	if !ok {
		return
	}
	target, ok := pathID(c)
	if !ok {
		return
	}
	p, err := th.contest.ResetPlayer(actionContext(c), admin, target)
	if err != nil {
		th.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (th *TournamentHandler) fail(c *gin.Context, err error) {
	code, status := errorCode(err)
	if status >= http.StatusInternalServerError {
		th.logger.Errorf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "player id must be an integer", "code": "invalid"})
		return 0, false
	}
	return id, true
}

func adminID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.GetHeader(AdminHeader), 10, 64)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": AdminHeader + " header is required", "code": "not_admin"})
		return 0, false
	}
	return id, true
}
