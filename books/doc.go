// Package books is a typed client for the Zoho Books v3 REST API.
//
// A Client scopes every call to one organization and authenticates with an
// auth.Provider. When the API answers 401 the client forces one token refresh
// and retries the call once; every other failure is returned as *APIError.
//
//	tm, err := auth.NewTokenManager(creds, auth.WithDataCenter(auth.DataCenterEU))
//	if err != nil {
//		return err
//	}
//	client, err := books.New(creds.OrganizationID, tm, books.WithDataCenter(auth.DataCenterEU))
//	if err != nil {
//		return err
//	}
//	taxes, err := client.Taxes.ListAll(ctx, nil)
package books
