/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	roomsOpen = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "countrygrid_rooms",
		Help: "Rooms currently held by the relay",
	})

	membersConnected = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "countrygrid_members",
		Help: "Websocket connections across all rooms",
	})

	framesRelayed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "countrygrid_frames_relayed_total",
		Help: "Frames accepted from a member and fanned out, by frame type",
	}, []string{"type"})

	framesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "countrygrid_frames_dropped_total",
		Help: "Frames discarded by the relay, by reason",
	}, []string{"reason"})
)

const (
	dropRateLimited = "rate_limited"
	dropInvalid     = "invalid"
	dropSlowMember  = "slow_member"
)

func registerMetricsHandlers(cfg *Config, mux *httprouter.Router) {
	mux.Handler("GET", cfg.prefix+"/metrics", promhttp.Handler())
}

func registerProfileHandlers(cfg *Config, mux *httprouter.Router) {
	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.Handler("GET", cfg.prefix+"/pprof/"+name, pprof.Handler(name))
	}

	mux.HandlerFunc("GET", cfg.prefix+"/pprof/cmdline", pprof.Cmdline)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/profile", pprof.Profile)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/symbol", pprof.Symbol)
	mux.HandlerFunc("GET", cfg.prefix+"/pprof/trace", pprof.Trace)
}
