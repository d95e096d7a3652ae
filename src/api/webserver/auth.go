package webserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stake-plus/solana-dao-radar/src/data"
	"github.com/stake-plus/solana-dao-radar/src/solana"
)

type Auth struct {
	nonces    *data.Nonces
	jwtSecret []byte
}

func NewAuth(nonces *data.Nonces, secret []byte) Auth {
	return Auth{nonces: nonces, jwtSecret: secret}
}

func (a Auth) Challenge(c *gin.Context) {
	var req struct {
		Wallet string `json:"wallet" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := solana.PublicKeyFromBase58(req.Wallet); err != nil {
		badRequest(c, err)
		return
	}
	nonce := uuid.NewString()
	if err := a.nonces.Set(c, req.Wallet, nonce); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"nonce": nonce, "message": challengeMessage(nonce)})
}

func (a Auth) Verify(c *gin.Context) {
	var req struct {
		Wallet    string `json:"wallet"    binding:"required"`
		Signature string `json:"signature" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	nonce, err := a.nonces.Take(c, req.Wallet)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"err": "challenge expired"})
		return
	}
	if err := verifySignature(req.Wallet, req.Signature, challengeMessage(nonce)); err != nil {
		logger.Debugf("sign-in by %s refused: %v", req.Wallet, err)
		c.JSON(http.StatusUnauthorized, gin.H{"err": "bad signature"})
		return
	}
	token, err := issueJWT(req.Wallet, a.jwtSecret)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}
