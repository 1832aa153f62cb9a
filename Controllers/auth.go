package Controllers

import (
	"errors"
	"time"

	"Convoy/Models"
	"Convoy/middleware"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const sessionTTL = 24 * time.Hour

type AuthHandler struct {
	DB *gorm.DB
}

func NewAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{DB: db}
}

type credentials struct {
	Username string `json:"username" validate:"required,min=3,max=150"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// Register creates a dispatcher account. The very first account becomes an
// admin.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var in credentials
	if ok, err := parseBody(c, &in); !ok {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to hash password"})
	}

	user := Models.User{Username: in.Username, Password: hash, Permission: Models.PermissionDispatcher}
	err = h.DB.Transaction(func(tx *gorm.DB) error {
		var taken int64
		if err := tx.Model(&Models.User{}).Where("username = ?", in.Username).Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return errUsernameTaken
		}
		var users int64
		if err := tx.Model(&Models.User{}).Count(&users).Error; err != nil {
			return err
		}
		if users == 0 {
			user.Permission = Models.PermissionAdmin
		}
		return tx.Create(&user).Error
	})
	if errors.Is(err, errUsernameTaken) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "Username already exists"})
	}
	if err != nil {
		log.WithError(err).Error("register user")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Failed to register user"})
	}

	log.WithFields(log.Fields{"user_id": user.ID, "permission": user.Permission}).Info("user registered")
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"data":    user,
	})
}

var errUsernameTaken = errors.New("username taken")

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var in credentials
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid request body"})
	}

	var user Models.User
	if err := h.DB.Where("username = ?", in.Username).First(&user).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Incorrect username or password"})
	}
	if err := bcrypt.CompareHashAndPassword(user.Password, []byte(in.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Incorrect username or password"})
	}

	token, err := middleware.IssueToken(user, sessionTTL)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Could not log in"})
	}
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Expires:  time.Now().Add(sessionTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return c.JSON(fiber.Map{
		"message": "Login successful",
		"data":    user,
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
	})
	return c.JSON(fiber.Map{"message": "Logged out"})
}

// Me returns the user Verify resolved from the cookie.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not Logged In."})
	}
	return c.JSON(fiber.Map{"data": user})
}
