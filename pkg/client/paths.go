package client

// API routes shared by the server and the clients.
const (
	PathRegisterPinger = "/api/v1.0/master/register_pinger"
	PathRegisterPonger = "/api/v1.0/master/register_ponger"
	PathReportResult   = "/api/v1.0/master/register_pinger_result"
	PathStartSession   = "/api/v1.0/start_session"
	PathIperfServer    = "/api/v1.0/iperf/server"
)
