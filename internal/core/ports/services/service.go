package services

// ServiceContainer holds all service facades needed by the handler layer.
type ServiceContainer struct {
	Tenant      TenantSvcFacade
	Rule        RuleSvcFacade
	Transaction TransactionSvcFacade
	Conversion  ConversionSvcFacade
	TaxLot      TaxLotSvcFacade
	Integration IntegrationSvcFacade
}
