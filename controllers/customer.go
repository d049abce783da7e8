package controllers

import (
	"net/http"

	"repairdesk-backend/services"
	"repairdesk-backend/utils"

	"github.com/gin-gonic/gin"
)

// CustomerController serves the customer view derived from records
type CustomerController struct {
	Engine *services.Engine
}

// GetCustomers aggregates all records into customers, optionally filtered by ?q=
func (cc *CustomerController) GetCustomers(c *gin.Context) {
	agg, err := cc.Engine.Customers.Customers(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondServiceError(c, err, "Failed to retrieve customers")
		return
	}
	c.JSON(http.StatusOK, agg)
}

// LookupCustomer finds a customer by any form of their phone number
func (cc *CustomerController) LookupCustomer(c *gin.Context) {
	phone := c.Query("phone")
	if !utils.ValidatePhone(phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	customer, err := cc.Engine.Customers.Lookup(c.Request.Context(), phone)
	if err != nil {
		respondServiceError(c, err, "Failed to look up customer")
		return
	}
	c.JSON(http.StatusOK, customer)
}
