package utils

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

type signupBody struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=5"`
}

func TestFieldErrorsUsesJSONNames(t *testing.T) {
	UseJSONFieldNames()

	err := binding.Validator.ValidateStruct(&signupBody{Email: "nope", Password: "abc"})

	fields := FieldErrors(err)
	assert.Equal(t, map[string]string{
		"email":    "Enter a valid email address.",
		"password": "Ensure this field has at least 5 characters.",
	}, fields)
}

func TestFieldErrorsIgnoresOtherErrors(t *testing.T) {
	assert.Nil(t, FieldErrors(assert.AnError))
}
